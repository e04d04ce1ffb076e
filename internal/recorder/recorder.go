// Package recorder is the producer side of a trace: it interns paths,
// functions, variables and types into dense identifiers and emits the
// event stream, declaring every identifier before its first use.
//
// A Recorder is single threaded. Events are forwarded to its EventWriter
// in call order, which is also replay order.
package recorder

import (
	"fmt"
	"os"

	"codetrace/internal/trace"
)

// EventWriter receives the emitted stream. traceio.Writer implements it.
type EventWriter interface {
	Begin(path string) error
	Add(ev trace.Event)
	Append(events []trace.Event)
	Finish() error
}

// Config carries the trace metadata. An empty Workdir defaults to the
// process working directory.
type Config struct {
	Program string
	Args    []string
	Workdir string
}

type function struct {
	name   string
	pathID trace.PathID
	line   trace.Line
}

// Recorder interns paths, functions, variables and types and emits each
// declaration before its first use. It is not safe for concurrent use.
type Recorder struct {
	out EventWriter

	program string
	args    []string
	workdir string

	pathList     []string
	functionList []function

	paths     map[string]trace.PathID
	functions map[string]trace.FunctionID
	variables map[string]trace.VariableID
	types     map[string]trace.TypeID

	metadataFile sideFile
	pathsFile    sideFile
}

// New returns a recorder that forwards events to out.
func New(cfg Config, out EventWriter) (*Recorder, error) {
	if out == nil {
		return nil, fmt.Errorf("recorder: nil event writer")
	}
	workdir := cfg.Workdir
	if workdir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("recorder: working directory: %w", err)
		}
		workdir = wd
	}
	args := make([]string, len(cfg.Args))
	copy(args, cfg.Args)
	return &Recorder{
		out:       out,
		program:   cfg.Program,
		args:      args,
		workdir:   workdir,
		paths:     make(map[string]trace.PathID),
		functions: make(map[string]trace.FunctionID),
		variables: make(map[string]trace.VariableID),
		types:     make(map[string]trace.TypeID),

		metadataFile: sideFile{name: "TraceMetadata"},
		pathsFile:    sideFile{name: "TracePaths"},
	}, nil
}

// Metadata returns the metadata written to the metadata side file.
func (r *Recorder) Metadata() trace.TraceMetadata {
	args := make([]string, len(r.args))
	copy(args, r.args)
	return trace.TraceMetadata{Program: r.program, Args: args, Workdir: r.workdir}
}

// Paths returns the interned paths indexed by PathID.
func (r *Recorder) Paths() []string {
	out := make([]string, len(r.pathList))
	copy(out, r.pathList)
	return out
}

func (r *Recorder) add(ev trace.Event) {
	r.out.Add(ev)
}

// AppendEvents forwards pre-built events unchanged. The caller keeps
// them definition-before-use.
func (r *Recorder) AppendEvents(events []trace.Event) {
	r.out.Append(events)
}

// Start declares the top-level function at (path, line), enters it and
// registers the None type. It panics if the reserved identifiers were
// already taken.
func (r *Recorder) Start(path string, line trace.Line) {
	fid := r.EnsureFunctionID(trace.TopLevelFunctionName, path, line)
	r.RegisterCall(fid, nil)
	if fid != trace.TopLevelFunctionID {
		panic(fmt.Sprintf("recorder: Start: top-level function got id %d, want %d", fid, trace.TopLevelFunctionID))
	}
	if tid := r.EnsureTypeID(trace.TypeKindNone, "None"); tid != trace.NoneTypeID {
		panic(fmt.Sprintf("recorder: Start: None type got id %d, want %d", tid, trace.NoneTypeID))
	}
}

// EnsurePathID returns the id of path, declaring it on first sight.
func (r *Recorder) EnsurePathID(path string) trace.PathID {
	if id, ok := r.paths[path]; ok {
		return id
	}
	id := trace.NextID[trace.PathID](len(r.paths))
	r.paths[path] = id
	r.RegisterPath(path)
	return id
}

// EnsureFunctionID interns by name only; a later registration of the same
// name at another location returns the first id.
func (r *Recorder) EnsureFunctionID(name, path string, line trace.Line) trace.FunctionID {
	if id, ok := r.functions[name]; ok {
		return id
	}
	id := trace.NextID[trace.FunctionID](len(r.functions))
	r.functions[name] = id
	r.RegisterFunction(name, path, line)
	return id
}

// EnsureTypeID interns a type with no specific info.
func (r *Recorder) EnsureTypeID(kind trace.TypeKind, langType string) trace.TypeID {
	return r.EnsureRawTypeID(r.ToRawType(kind, langType))
}

// EnsureRawTypeID interns by LangType alone, so two kinds sharing a name
// share one id.
func (r *Recorder) EnsureRawTypeID(typ trace.TypeRecord) trace.TypeID {
	if id, ok := r.types[typ.LangType]; ok {
		return id
	}
	id := trace.NextID[trace.TypeID](len(r.types))
	r.types[typ.LangType] = id
	r.RegisterRawType(typ)
	return id
}

// EnsureVariableID returns the id of name, declaring it on first sight.
func (r *Recorder) EnsureVariableID(name string) trace.VariableID {
	if id, ok := r.variables[name]; ok {
		return id
	}
	id := trace.NextID[trace.VariableID](len(r.variables))
	r.variables[name] = id
	r.RegisterVariableName(name)
	return id
}

// RegisterPath emits a Path declaration and records it in the path list.
// Prefer EnsurePathID, which keeps ids and declarations aligned.
func (r *Recorder) RegisterPath(path string) {
	r.pathList = append(r.pathList, path)
	r.add(trace.Path{Path: path})
}

// RegisterFunction emits a Function declaration without interning the
// name. Its path is interned.
func (r *Recorder) RegisterFunction(name, path string, line trace.Line) {
	pathID := r.EnsurePathID(path)
	r.functionList = append(r.functionList, function{name: name, pathID: pathID, line: line})
	r.add(trace.FunctionRecord{Name: name, PathID: pathID, Line: line})
}

// RegisterStep emits a Step at (path, line).
func (r *Recorder) RegisterStep(path string, line trace.Line) {
	pathID := r.EnsurePathID(path)
	r.add(trace.StepRecord{PathID: pathID, Line: line})
}

// RegisterCall enters fid. For any function other than the top level it
// first emits a Value per argument and a Step at the function's
// declaration site.
func (r *Recorder) RegisterCall(fid trace.FunctionID, args []trace.FullValueRecord) {
	if fid != trace.TopLevelFunctionID {
		if uint64(fid) >= uint64(len(r.functionList)) {
			panic(fmt.Sprintf("recorder: RegisterCall: unknown function id %d", fid))
		}
		for _, arg := range args {
			r.RegisterFullValue(arg.VariableID, arg.Value)
		}
		fn := r.functionList[fid]
		r.add(trace.StepRecord{PathID: fn.pathID, Line: fn.line})
	}
	r.add(trace.CallRecord{FunctionID: fid, Args: args})
}

// Arg interns name and pairs it with value for RegisterCall.
func (r *Recorder) Arg(name string, value trace.ValueRecord) trace.FullValueRecord {
	return trace.FullValueRecord{VariableID: r.EnsureVariableID(name), Value: value}
}

// RegisterReturn leaves the current call with value.
func (r *Recorder) RegisterReturn(value trace.ValueRecord) {
	r.add(trace.ReturnRecord{ReturnValue: value})
}

// RegisterSpecialEvent emits an Event with empty metadata.
func (r *Recorder) RegisterSpecialEvent(kind trace.EventLogKind, content string) {
	r.RegisterSpecialEventWithMetadata(kind, "", content)
}

func (r *Recorder) RegisterSpecialEventWithMetadata(kind trace.EventLogKind, metadata, content string) {
	r.add(trace.RecordEvent{Kind: kind, Metadata: metadata, Content: content})
}

// ToRawType builds a TypeRecord with no specific info.
func (r *Recorder) ToRawType(kind trace.TypeKind, langType string) trace.TypeRecord {
	return trace.TypeRecord{Kind: kind, LangType: langType, SpecificInfo: trace.NoSpecificInfo{}}
}

// RegisterType emits a Type declaration without interning it.
func (r *Recorder) RegisterType(kind trace.TypeKind, langType string) {
	r.RegisterRawType(r.ToRawType(kind, langType))
}

// RegisterRawType emits typ as is.
func (r *Recorder) RegisterRawType(typ trace.TypeRecord) {
	r.add(typ)
}

// RegisterAsm emits a copy of instructions.
func (r *Recorder) RegisterAsm(instructions []string) {
	ins := make([]string, len(instructions))
	copy(ins, instructions)
	r.add(trace.Asm{Instructions: ins})
}

// RegisterVariableWithFullValue interns name and emits its value.
func (r *Recorder) RegisterVariableWithFullValue(name string, value trace.ValueRecord) {
	r.RegisterFullValue(r.EnsureVariableID(name), value)
}

func (r *Recorder) RegisterVariableName(name string) {
	r.add(trace.VariableName{Name: name})
}

func (r *Recorder) RegisterFullValue(id trace.VariableID, value trace.ValueRecord) {
	r.add(trace.FullValueRecord{VariableID: id, Value: value})
}

// RegisterCompoundValue and RegisterCellValue record the value held at
// place.
func (r *Recorder) RegisterCompoundValue(place trace.Place, value trace.ValueRecord) {
	r.add(trace.CompoundValueRecord{Place: place, Value: value})
}

func (r *Recorder) RegisterCellValue(place trace.Place, value trace.ValueRecord) {
	r.add(trace.CellValueRecord{Place: place, Value: value})
}

// AssignCompoundItem stores itemPlace at index of the compound at place.
func (r *Recorder) AssignCompoundItem(place trace.Place, index int, itemPlace trace.Place) {
	r.add(trace.AssignCompoundItemRecord{Place: place, Index: index, ItemPlace: itemPlace})
}

func (r *Recorder) AssignCell(place trace.Place, newValue trace.ValueRecord) {
	r.add(trace.AssignCellRecord{Place: place, NewValue: newValue})
}

// RegisterVariable ties a variable to a storage cell.
func (r *Recorder) RegisterVariable(name string, place trace.Place) {
	r.add(trace.VariableCellRecord{VariableID: r.EnsureVariableID(name), Place: place})
}

// DropVariable ends the lifetime of name.
func (r *Recorder) DropVariable(name string) {
	r.add(trace.DropVariable{VariableID: r.EnsureVariableID(name)})
}

// Assign records that name received from, moved or copied per passBy.
func (r *Recorder) Assign(name string, from trace.RValue, passBy trace.PassBy) {
	r.add(trace.AssignmentRecord{To: r.EnsureVariableID(name), PassBy: passBy, From: from})
}

func (r *Recorder) BindVariable(name string, place trace.Place) {
	r.add(trace.BindVariableRecord{VariableID: r.EnsureVariableID(name), Place: place})
}

func (r *Recorder) DropVariables(names []string) {
	r.add(trace.DropVariables{VariableIDs: r.variableIDs(names)})
}

// SimpleRValue and CompoundRValue intern their variable names.
func (r *Recorder) SimpleRValue(name string) trace.RValue {
	return trace.SimpleRValue{VariableID: r.EnsureVariableID(name)}
}

func (r *Recorder) CompoundRValue(dependencies []string) trace.RValue {
	return trace.CompoundRValue{VariableIDs: r.variableIDs(dependencies)}
}

func (r *Recorder) variableIDs(names []string) []trace.VariableID {
	ids := make([]trace.VariableID, 0, len(names))
	for _, name := range names {
		ids = append(ids, r.EnsureVariableID(name))
	}
	return ids
}

// ThreadStart, ThreadExit and ThreadSwitch emit the matching thread event.
func (r *Recorder) ThreadStart(id trace.ThreadID) {
	r.add(trace.ThreadStart{ThreadID: id})
}

func (r *Recorder) ThreadExit(id trace.ThreadID) {
	r.add(trace.ThreadExit{ThreadID: id})
}

func (r *Recorder) ThreadSwitch(id trace.ThreadID) {
	r.add(trace.ThreadSwitch{ThreadID: id})
}

// DropLastStep withdraws the previous Step.
func (r *Recorder) DropLastStep() {
	r.add(trace.DropLastStep{})
}

// BeginWritingTraceEvents opens the event output at path.
func (r *Recorder) BeginWritingTraceEvents(path string) error {
	return r.out.Begin(path)
}

// FinishWritingTraceEvents finalizes the event output.
func (r *Recorder) FinishWritingTraceEvents() error {
	return r.out.Finish()
}
