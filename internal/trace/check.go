package trace

import "fmt"

// Namespace names one of the interned identifier spaces.
type Namespace uint8

const (
	NamespacePath Namespace = iota + 1
	NamespaceFunction
	NamespaceVariable
	NamespaceType
)

func (n Namespace) String() string {
	switch n {
	case NamespacePath:
		return "path"
	case NamespaceFunction:
		return "function"
	case NamespaceVariable:
		return "variable"
	case NamespaceType:
		return "type"
	default:
		return "unknown"
	}
}

// DefinitionError reports a reference to an ID whose declaration has not
// been seen yet.
type DefinitionError struct {
	Index     int
	Event     string
	Namespace Namespace
	ID        uint64
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("event %d (%s): %s id %d used before its declaration", e.Index, e.Event, e.Namespace, e.ID)
}

// defCounts tracks how many IDs of each namespace a stream prefix defines.
type defCounts struct {
	paths, functions, variables, types uint64
}

func (c *defCounts) limit(ns Namespace) uint64 {
	switch ns {
	case NamespacePath:
		return c.paths
	case NamespaceFunction:
		return c.functions
	case NamespaceVariable:
		return c.variables
	case NamespaceType:
		return c.types
	default:
		return 0
	}
}

// CheckDefinitions verifies that every PathID, FunctionID, VariableID and
// TypeID referenced by events is declared by an earlier event. IDs are
// dense, so the Nth declaration of a namespace defines ID N-1.
// Type references inside a TypeRecord may point at the record itself; the
// type is counted as declared before its own fields are checked.
func CheckDefinitions(events []Event) error {
	var defs defCounts
	for i, ev := range events {
		c := checker{defs: &defs, index: i, event: EventName(ev)}
		switch e := ev.(type) {
		case Path:
			defs.paths++
		case VariableName:
			defs.variables++
		case Variable:
			defs.variables++
		case TypeRecord:
			defs.types++
			c.typeInfo(e)
		case FunctionRecord:
			c.use(NamespacePath, uint64(e.PathID))
			defs.functions++
		case StepRecord:
			c.use(NamespacePath, uint64(e.PathID))
		case FullValueRecord:
			c.use(NamespaceVariable, uint64(e.VariableID))
			c.value(e.Value)
		case CallRecord:
			c.use(NamespaceFunction, uint64(e.FunctionID))
			for _, arg := range e.Args {
				c.use(NamespaceVariable, uint64(arg.VariableID))
				c.value(arg.Value)
			}
		case ReturnRecord:
			c.value(e.ReturnValue)
		case RecordEvent, Asm, ThreadStart, ThreadExit, ThreadSwitch, DropLastStep, AssignCompoundItemRecord:
		case BindVariableRecord:
			c.use(NamespaceVariable, uint64(e.VariableID))
		case AssignmentRecord:
			c.use(NamespaceVariable, uint64(e.To))
			switch from := e.From.(type) {
			case SimpleRValue:
				c.use(NamespaceVariable, uint64(from.VariableID))
			case CompoundRValue:
				for _, id := range from.VariableIDs {
					c.use(NamespaceVariable, uint64(id))
				}
			}
		case DropVariables:
			for _, id := range e.VariableIDs {
				c.use(NamespaceVariable, uint64(id))
			}
		case DropVariable:
			c.use(NamespaceVariable, uint64(e.VariableID))
		case CompoundValueRecord:
			c.value(e.Value)
		case CellValueRecord:
			c.value(e.Value)
		case AssignCellRecord:
			c.value(e.NewValue)
		case VariableCellRecord:
			c.use(NamespaceVariable, uint64(e.VariableID))
		default:
			return fmt.Errorf("event %d: unsupported event %T", i, ev)
		}
		if c.err != nil {
			return c.err
		}
	}
	return nil
}

type checker struct {
	defs  *defCounts
	index int
	event string
	err   error
}

func (c *checker) use(ns Namespace, id uint64) {
	if c.err != nil {
		return
	}
	if id >= c.defs.limit(ns) {
		c.err = &DefinitionError{Index: c.index, Event: c.event, Namespace: ns, ID: id}
	}
}

func (c *checker) typeInfo(t TypeRecord) {
	switch info := SpecificInfoOf(t).(type) {
	case StructInfo:
		for _, f := range info.Fields {
			c.use(NamespaceType, uint64(f.TypeID))
		}
	case PointerInfo:
		c.use(NamespaceType, uint64(info.DereferenceTypeID))
	case NoSpecificInfo:
	}
}

func (c *checker) value(v ValueRecord) {
	switch val := v.(type) {
	case IntValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case FloatValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case BoolValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case StringValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case SequenceValue:
		c.use(NamespaceType, uint64(val.TypeID))
		for _, el := range val.Elements {
			c.value(el)
		}
	case TupleValue:
		c.use(NamespaceType, uint64(val.TypeID))
		for _, el := range val.Elements {
			c.value(el)
		}
	case StructValue:
		c.use(NamespaceType, uint64(val.TypeID))
		for _, el := range val.FieldValues {
			c.value(el)
		}
	case VariantValue:
		c.use(NamespaceType, uint64(val.TypeID))
		c.value(val.Contents)
	case ReferenceValue:
		c.use(NamespaceType, uint64(val.TypeID))
		c.value(val.Dereferenced)
	case RawValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case ErrorValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case NoneValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case BigIntValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case CharValue:
		c.use(NamespaceType, uint64(val.TypeID))
	case CellValue, nil:
	}
}
