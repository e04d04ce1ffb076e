package trace

// Event is one entry of the recorded execution log. Streams are
// definition-before-use: the declaring event of every ID precedes its
// first reference.
//
//sumtype:decl
type Event interface {
	isEvent()
}

// Path declares the next PathID.
type Path struct {
	Path string
}

// VariableName declares the next VariableID.
type VariableName struct {
	Name string
}

// Variable is the legacy spelling of VariableName found in older streams.
type Variable struct {
	Name string
}

// FunctionRecord declares the next FunctionID.
type FunctionRecord struct {
	Name   string
	PathID PathID
	Line   Line
}

// StepRecord marks execution reaching (PathID, Line).
type StepRecord struct {
	PathID PathID
	Line   Line
}

// FullValueRecord gives a variable its current value.
type FullValueRecord struct {
	VariableID VariableID
	Value      ValueRecord
}

// CallRecord enters a function with its arguments.
type CallRecord struct {
	FunctionID FunctionID
	Args       []FullValueRecord
}

// ReturnRecord leaves the innermost call.
type ReturnRecord struct {
	ReturnValue ValueRecord
}

// RecordEvent is a free-form instrumentation event such as program I/O.
type RecordEvent struct {
	Kind     EventLogKind
	Metadata string
	Content  string
}

// Asm is a raw assembly listing.
type Asm struct {
	Instructions []string
}

// BindVariableRecord binds a variable to a place.
type BindVariableRecord struct {
	VariableID VariableID
	Place      Place
}

// AssignmentRecord records where a variable's new value came from.
type AssignmentRecord struct {
	To     VariableID
	PassBy PassBy
	From   RValue
}

type DropVariables struct {
	VariableIDs []VariableID
}

// DropVariable ends one variable's lifetime. See DropVariables.
type DropVariable struct {
	VariableID VariableID
}

// CompoundValueRecord and CellValueRecord record the value at a place.
type CompoundValueRecord struct {
	Place Place
	Value ValueRecord
}

type CellValueRecord struct {
	Place Place
	Value ValueRecord
}

// AssignCompoundItemRecord stores ItemPlace at Index of the compound at Place.
type AssignCompoundItemRecord struct {
	Place     Place
	Index     int
	ItemPlace Place
}

type AssignCellRecord struct {
	Place    Place
	NewValue ValueRecord
}

// VariableCellRecord ties a variable to a storage cell.
type VariableCellRecord struct {
	VariableID VariableID
	Place      Place
}

// ThreadStart, ThreadExit and ThreadSwitch track the active thread.
type ThreadStart struct {
	ThreadID ThreadID
}

type ThreadExit struct {
	ThreadID ThreadID
}

type ThreadSwitch struct {
	ThreadID ThreadID
}

// DropLastStep tells replay to discard the most recent step together with
// the value and variable events that followed it.
type DropLastStep struct{}

func (Path) isEvent()                     {}
func (VariableName) isEvent()             {}
func (Variable) isEvent()                 {}
func (TypeRecord) isEvent()               {}
func (FullValueRecord) isEvent()          {}
func (FunctionRecord) isEvent()           {}
func (StepRecord) isEvent()               {}
func (CallRecord) isEvent()               {}
func (ReturnRecord) isEvent()             {}
func (RecordEvent) isEvent()              {}
func (Asm) isEvent()                      {}
func (BindVariableRecord) isEvent()       {}
func (AssignmentRecord) isEvent()         {}
func (DropVariables) isEvent()            {}
func (DropVariable) isEvent()             {}
func (CompoundValueRecord) isEvent()      {}
func (CellValueRecord) isEvent()          {}
func (AssignCompoundItemRecord) isEvent() {}
func (AssignCellRecord) isEvent()         {}
func (VariableCellRecord) isEvent()       {}
func (ThreadStart) isEvent()              {}
func (ThreadExit) isEvent()               {}
func (ThreadSwitch) isEvent()             {}
func (DropLastStep) isEvent()             {}

// EventName returns the variant name of ev as used by the self-describing
// encodings ("Step", "Call", ...).
func EventName(ev Event) string {
	switch ev.(type) {
	case Path:
		return "Path"
	case VariableName:
		return "VariableName"
	case Variable:
		return "Variable"
	case TypeRecord:
		return "Type"
	case FullValueRecord:
		return "Value"
	case FunctionRecord:
		return "Function"
	case StepRecord:
		return "Step"
	case CallRecord:
		return "Call"
	case ReturnRecord:
		return "Return"
	case RecordEvent:
		return "Event"
	case Asm:
		return "Asm"
	case BindVariableRecord:
		return "BindVariable"
	case AssignmentRecord:
		return "Assignment"
	case DropVariables:
		return "DropVariables"
	case DropVariable:
		return "DropVariable"
	case CompoundValueRecord:
		return "CompoundValue"
	case CellValueRecord:
		return "CellValue"
	case AssignCompoundItemRecord:
		return "AssignCompoundItem"
	case AssignCellRecord:
		return "AssignCell"
	case VariableCellRecord:
		return "VariableCell"
	case ThreadStart:
		return "ThreadStart"
	case ThreadExit:
		return "ThreadExit"
	case ThreadSwitch:
		return "ThreadSwitch"
	case DropLastStep:
		return "DropLastStep"
	case nil:
		return "<nil>"
	default:
		return "unknown"
	}
}
