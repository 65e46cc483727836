package vibelang

import "fmt"

// maxCallFrames bounds the guest call-frame stack; exceeding it surfaces as
// the "stack growth failure" runtime-error category from spec.md §7.
const maxCallFrames = 1024

const (
	stringBaseBytes       = 32
	functionBaseBytes     = 64
	arrayBaseBytes        = 24
	classBaseBytes        = 40
	instanceBaseBytes     = 32
	boundMethodBaseBytes  = 24
	propertyEntryBytes    = 24
	valueBytes            = 16
)

// CallFrame is one entry in the VM's call-frame stack: the running
// function, its instruction pointer, the base index of its register
// window into vm.stack, and the register in the CALLER's window that
// should receive this call's result.
type CallFrame struct {
	function  *ObjFunction
	ip        int
	base      int
	returnReg int
}

// VM owns one heap, one string table, one global-variable store, and the
// single dispatch loop that drives them. Multiple VMs may coexist but must
// never share objects.
type VM struct {
	stack    []Value
	stackTop int

	frames []CallFrame

	globalValues  []Value
	globalDefined []bool

	strings   stringTable
	objects   Obj
	grayStack []Obj

	bytesAllocated int
	nextGC         int

	constructorName *ObjString

	config *Config
}

// NewVM allocates a fresh VM with vibelang's default configuration.
func NewVM() *VM {
	vm := &VM{config: NewConfig()}
	vm.stack = make([]Value, vm.config.GetInt("vm.stack.initial_size"))
	vm.nextGC = vm.config.GetInt("vm.gc.initial_threshold")
	vm.constructorName = vm.internString("constructor")
	return vm
}

// Free drops the VM's heap. Go's own GC reclaims everything once the VM
// value itself becomes unreachable; this mirrors the teacher's vm_free
// lifecycle call for API symmetry with vm_init.
func (vm *VM) Free() {
	vm.stack = nil
	vm.frames = nil
	vm.globalValues = nil
	vm.globalDefined = nil
	vm.strings = stringTable{}
	vm.objects = nil
	vm.grayStack = nil
}

// Config exposes the VM's tuning knobs (vm.gc.enabled, vm.stack.*, ...).
func (vm *VM) Config() *Config { return vm.config }

// push/pop park values on the register stack outside of any call frame.
// The compiler uses this to root freshly allocated ObjFunctions while it
// keeps allocating (interning names, nested function constants) during
// compilation.
func (vm *VM) push(v Value) {
	if vm.stackTop >= len(vm.stack) {
		vm.growStack(vm.stackTop + 1)
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) growStack(min int) {
	newCap := len(vm.stack) * 2
	if newCap < min {
		newCap = min
	}
	newStack := make([]Value, newCap)
	copy(newStack, vm.stack)
	vm.stack = newStack
}

func (vm *VM) ensureRegisters(base, count int) {
	if base+count > len(vm.stack) {
		vm.growStack(base + count)
	}
}

// Interpret runs a zero-arity function (the script's root function, or any
// other zero-arity function value) to completion and returns its result,
// or the RuntimeError the dispatch loop raised.
func (vm *VM) Interpret(fn *ObjFunction) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(*RuntimeError); ok {
				err = rerr
				vm.resetStack()
				return
			}
			panic(r)
		}
	}()

	base := vm.stackTop
	vm.ensureRegisters(base, fn.RegisterCount)
	vm.stackTop = base + fn.RegisterCount
	for i := base; i < vm.stackTop; i++ {
		vm.stack[i] = NullValue()
	}
	vm.frames = append(vm.frames, CallFrame{function: fn, ip: 0, base: base, returnReg: -1})
	result = vm.run()
	return result, nil
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frames = vm.frames[:0]
}

// run drives the fetch-decode-execute loop. GC checks happen only between
// whole instructions, never mid-instruction: every value an instruction
// produces is already written to its destination register (and therefore
// reachable from the root walk) before the next check can run, so a
// collection can never observe a freshly computed, not-yet-stored value.
func (vm *VM) run() Value {
	for {
		if vm.config.GetBool("vm.gc.enabled") && vm.bytesAllocated > vm.nextGC {
			vm.CollectGarbage()
		}

		frame := &vm.frames[len(vm.frames)-1]
		op := OpCode(vm.readByte(frame))

		switch op {
		case OpLoadConst:
			dest := vm.readByte(frame)
			idx := vm.readU16(frame)
			vm.setReg(frame, dest, frame.function.Chunk.GetConstant(idx))
		case OpLoadNull:
			dest := vm.readByte(frame)
			vm.setReg(frame, dest, NullValue())
		case OpLoadTrue:
			dest := vm.readByte(frame)
			vm.setReg(frame, dest, BoolValue(true))
		case OpLoadFalse:
			dest := vm.readByte(frame)
			vm.setReg(frame, dest, BoolValue(false))
		case OpMove:
			dest, src := vm.readByte(frame), vm.readByte(frame)
			vm.setReg(frame, dest, vm.getReg(frame, src))
		case OpAdd:
			vm.execAdd(frame)
		case OpSubtract:
			vm.execArith(frame, func(a, b float64) float64 { return a - b })
		case OpMultiply:
			vm.execArith(frame, func(a, b float64) float64 { return a * b })
		case OpDivide:
			vm.execArith(frame, func(a, b float64) float64 { return a / b })
		case OpNegate:
			vm.execNegate(frame)
		case OpNot:
			dest, src := vm.readByte(frame), vm.readByte(frame)
			vm.setReg(frame, dest, BoolValue(!vm.getReg(frame, src).IsTruthy()))
		case OpEqual:
			dest, a, b := vm.readByte(frame), vm.readByte(frame), vm.readByte(frame)
			vm.setReg(frame, dest, BoolValue(ValuesEqual(vm.getReg(frame, a), vm.getReg(frame, b))))
		case OpGreater:
			vm.execCompare(frame, func(a, b float64) bool { return a > b })
		case OpLess:
			vm.execCompare(frame, func(a, b float64) bool { return a < b })
		case OpJump:
			off := vm.readU16(frame)
			frame.ip += int(off)
		case OpJumpIfFalse:
			cond := vm.readByte(frame)
			off := vm.readU16(frame)
			if !vm.getReg(frame, cond).IsTruthy() {
				frame.ip += int(off)
			}
		case OpLoop:
			off := vm.readU16(frame)
			frame.ip -= int(off)
		case OpCall:
			vm.execCall(frame)
		case OpReturn:
			if done, result := vm.execReturn(frame); done {
				return result
			}
		case OpGetGlobal:
			vm.execGetGlobal(frame)
		case OpSetGlobal:
			vm.execSetGlobal(frame)
		case OpDefineGlobal:
			vm.execDefineGlobal(frame)
		case OpBuildArray:
			vm.execBuildArray(frame)
		case OpArrayGet:
			vm.execArrayGet(frame)
		case OpClass:
			vm.execClass(frame)
		case OpMethod:
			vm.execMethod(frame)
		case OpGetProperty:
			vm.execGetProperty(frame)
		case OpSetProperty:
			vm.execSetProperty(frame)
		case OpInvoke:
			vm.execInvoke(frame)
		default:
			vm.runtimeError("Unknown opcode %d.", byte(op))
		}
	}
}

func (vm *VM) readByte(frame *CallFrame) byte {
	b := frame.function.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readU16(frame *CallFrame) uint16 {
	v := frame.function.Chunk.ReadU16(frame.ip)
	frame.ip += 2
	return v
}

func (vm *VM) getReg(frame *CallFrame, reg byte) Value {
	return vm.stack[frame.base+int(reg)]
}

func (vm *VM) setReg(frame *CallFrame, reg byte, v Value) {
	vm.stack[frame.base+int(reg)] = v
}

func (vm *VM) execAdd(frame *CallFrame) {
	dest, a, b := vm.readByte(frame), vm.readByte(frame), vm.readByte(frame)
	va, vb := vm.getReg(frame, a), vm.getReg(frame, b)
	switch {
	case va.IsNumber() && vb.IsNumber():
		vm.setReg(frame, dest, NumberValue(va.AsNumber()+vb.AsNumber()))
	case va.IsString() && vb.IsString():
		s := vm.internString(va.AsString().Chars + vb.AsString().Chars)
		vm.setReg(frame, dest, ObjectValue(s))
	case va.IsArray():
		// array + array concatenates; array + anything else appends a
		// copy of the scalar. The right operand's shape decides which,
		// per spec.md's Open Question #1 (preserved source behavior).
		arr := va.AsArray()
		var elems []Value
		if vb.IsArray() {
			rhs := vb.AsArray().Elements
			elems = make([]Value, 0, len(arr.Elements)+len(rhs))
			elems = append(elems, arr.Elements...)
			elems = append(elems, rhs...)
		} else {
			elems = make([]Value, 0, len(arr.Elements)+1)
			elems = append(elems, arr.Elements...)
			elems = append(elems, vb)
		}
		vm.setReg(frame, dest, ObjectValue(vm.newArray(elems)))
	default:
		vm.runtimeError("Operands must be two numbers, two strings, or an array.")
	}
}

func (vm *VM) execArith(frame *CallFrame, op func(a, b float64) float64) {
	dest, a, b := vm.readByte(frame), vm.readByte(frame), vm.readByte(frame)
	va, vb := vm.getReg(frame, a), vm.getReg(frame, b)
	if !va.IsNumber() || !vb.IsNumber() {
		vm.runtimeError("Operands must be numbers.")
		return
	}
	vm.setReg(frame, dest, NumberValue(op(va.AsNumber(), vb.AsNumber())))
}

func (vm *VM) execNegate(frame *CallFrame) {
	dest, src := vm.readByte(frame), vm.readByte(frame)
	v := vm.getReg(frame, src)
	if !v.IsNumber() {
		vm.runtimeError("Operand must be a number.")
		return
	}
	vm.setReg(frame, dest, NumberValue(-v.AsNumber()))
}

func (vm *VM) execCompare(frame *CallFrame, cmp func(a, b float64) bool) {
	dest, a, b := vm.readByte(frame), vm.readByte(frame), vm.readByte(frame)
	va, vb := vm.getReg(frame, a), vm.getReg(frame, b)
	if !va.IsNumber() || !vb.IsNumber() {
		vm.runtimeError("Operands must be numbers.")
		return
	}
	vm.setReg(frame, dest, BoolValue(cmp(va.AsNumber(), vb.AsNumber())))
}

func (vm *VM) execGetGlobal(frame *CallFrame) {
	dest := vm.readByte(frame)
	slot := vm.readU16(frame)
	if int(slot) >= len(vm.globalDefined) || !vm.globalDefined[slot] {
		vm.runtimeError("Undefined global variable.")
		return
	}
	vm.setReg(frame, dest, vm.globalValues[slot])
}

func (vm *VM) execSetGlobal(frame *CallFrame) {
	src := vm.readByte(frame)
	slot := vm.readU16(frame)
	if int(slot) >= len(vm.globalDefined) || !vm.globalDefined[slot] {
		vm.runtimeError("Undefined global variable.")
		return
	}
	vm.globalValues[slot] = vm.getReg(frame, src)
}

func (vm *VM) execDefineGlobal(frame *CallFrame) {
	src := vm.readByte(frame)
	slot := vm.readU16(frame)
	vm.ensureGlobals(int(slot))
	vm.globalValues[slot] = vm.getReg(frame, src)
	vm.globalDefined[slot] = true
}

func (vm *VM) ensureGlobals(slot int) {
	for slot >= len(vm.globalValues) {
		vm.globalValues = append(vm.globalValues, NullValue())
		vm.globalDefined = append(vm.globalDefined, false)
	}
}

func (vm *VM) execBuildArray(frame *CallFrame) {
	dest := vm.readByte(frame)
	n := int(vm.readByte(frame))
	elems := make([]Value, n)
	for i := 0; i < n; i++ {
		elems[i] = vm.getReg(frame, vm.readByte(frame))
	}
	vm.setReg(frame, dest, ObjectValue(vm.newArray(elems)))
}

func (vm *VM) execArrayGet(frame *CallFrame) {
	dest, arrReg, idxReg := vm.readByte(frame), vm.readByte(frame), vm.readByte(frame)
	av := vm.getReg(frame, arrReg)
	iv := vm.getReg(frame, idxReg)
	if !av.IsArray() {
		vm.runtimeError("Can only index into arrays.")
		return
	}
	if !iv.IsNumber() {
		vm.runtimeError("Array index must be a number.")
		return
	}
	idx := iv.AsNumber()
	if idx != float64(int(idx)) {
		vm.runtimeError("Array index must be an integer.")
		return
	}
	arr := av.AsArray()
	i := int(idx)
	if i < 0 || i >= len(arr.Elements) {
		vm.runtimeError("Array index %d out of range (length %d).", i, len(arr.Elements))
		return
	}
	vm.setReg(frame, dest, arr.Elements[i])
}

func (vm *VM) execClass(frame *CallFrame) {
	dest := vm.readByte(frame)
	nameIdx := vm.readU16(frame)
	name := frame.function.Chunk.GetConstant(nameIdx).AsString()
	vm.setReg(frame, dest, ObjectValue(vm.newClass(name)))
}

func (vm *VM) execMethod(frame *CallFrame) {
	classReg := vm.readByte(frame)
	nameIdx := vm.readU16(frame)
	fnReg := vm.readByte(frame)
	name := frame.function.Chunk.GetConstant(nameIdx).AsString()
	class := vm.getReg(frame, classReg).AsClass()
	fn := vm.getReg(frame, fnReg)
	class.defineMethod(name, fn)
	class.addBytes(propertyEntryBytes)
	vm.bytesAllocated += propertyEntryBytes
}

func (vm *VM) execGetProperty(frame *CallFrame) {
	dest, objReg := vm.readByte(frame), vm.readByte(frame)
	nameIdx := vm.readU16(frame)
	name := frame.function.Chunk.GetConstant(nameIdx).AsString()
	objVal := vm.getReg(frame, objReg)

	switch {
	case objVal.IsInstance():
		inst := objVal.AsInstance()
		if v, ok := inst.getField(name); ok {
			vm.setReg(frame, dest, v)
			return
		}
		if m, ok := inst.Class.findMethod(name); ok {
			vm.setReg(frame, dest, ObjectValue(vm.newBoundMethod(objVal, m.AsFunction())))
			return
		}
		vm.runtimeError("Undefined property '%s'.", name.Chars)
	case objVal.IsClass():
		// Returns the raw, unbound method value: spec.md's Open Question
		// #2, preserved as-is rather than "fixed".
		class := objVal.AsClass()
		if m, ok := class.findMethod(name); ok {
			vm.setReg(frame, dest, m)
			return
		}
		vm.runtimeError("Undefined property '%s'.", name.Chars)
	default:
		vm.runtimeError("Only instances and classes have properties.")
	}
}

func (vm *VM) execSetProperty(frame *CallFrame) {
	objReg := vm.readByte(frame)
	nameIdx := vm.readU16(frame)
	valReg := vm.readByte(frame)
	name := frame.function.Chunk.GetConstant(nameIdx).AsString()
	objVal := vm.getReg(frame, objReg)
	if !objVal.IsInstance() {
		vm.runtimeError("Only instances have settable fields.")
		return
	}
	inst := objVal.AsInstance()
	_, existed := inst.getField(name)
	inst.setField(name, vm.getReg(frame, valReg))
	if !existed {
		inst.addBytes(propertyEntryBytes)
		vm.bytesAllocated += propertyEntryBytes
	}
}

func (vm *VM) execCall(frame *CallFrame) {
	dest := vm.readByte(frame)
	calleeReg := vm.readByte(frame)
	n := int(vm.readByte(frame))
	argRegs := make([]byte, n)
	for i := 0; i < n; i++ {
		argRegs[i] = vm.readByte(frame)
	}
	callee := vm.getReg(frame, calleeReg)
	args := make([]Value, n)
	for i, r := range argRegs {
		args[i] = vm.getReg(frame, r)
	}
	vm.callValue(frame, callee, args, dest)
}

func (vm *VM) execInvoke(frame *CallFrame) {
	dest, objReg := vm.readByte(frame), vm.readByte(frame)
	nameIdx := vm.readU16(frame)
	n := int(vm.readByte(frame))
	argRegs := make([]byte, n)
	for i := 0; i < n; i++ {
		argRegs[i] = vm.readByte(frame)
	}
	name := frame.function.Chunk.GetConstant(nameIdx).AsString()
	objVal := vm.getReg(frame, objReg)
	args := make([]Value, n)
	for i, r := range argRegs {
		args[i] = vm.getReg(frame, r)
	}

	switch {
	case objVal.IsInstance():
		inst := objVal.AsInstance()
		if v, ok := inst.getField(name); ok {
			vm.callValue(frame, v, args, dest)
			return
		}
		if m, ok := inst.Class.findMethod(name); ok {
			full := make([]Value, 0, len(args)+1)
			full = append(full, objVal)
			full = append(full, args...)
			vm.callFunction(m.AsFunction(), full, dest)
			return
		}
		vm.runtimeError("Undefined property '%s'.", name.Chars)
	case objVal.IsClass():
		class := objVal.AsClass()
		if m, ok := class.findMethod(name); ok {
			vm.callValue(frame, m, args, dest)
			return
		}
		vm.runtimeError("Undefined property '%s'.", name.Chars)
	default:
		vm.runtimeError("Only instances and classes have properties.")
	}
}

// callValue implements the CALL protocol of spec.md §4.6: functions,
// bound methods, and classes (as constructors) are callable; anything
// else is a runtime error.
func (vm *VM) callValue(callerFrame *CallFrame, callee Value, args []Value, dest byte) {
	switch {
	case callee.IsFunction():
		vm.callFunction(callee.AsFunction(), args, dest)
	case callee.IsBoundMethod():
		bm := callee.AsBoundMethod()
		if len(args) != bm.Method.Arity-1 {
			vm.runtimeError("Expected %d arguments but got %d.", bm.Method.Arity-1, len(args))
			return
		}
		full := make([]Value, 0, len(args)+1)
		full = append(full, bm.Receiver)
		full = append(full, args...)
		vm.callFunction(bm.Method, full, dest)
	case callee.IsClass():
		class := callee.AsClass()
		inst := vm.newInstance(class)
		vm.setReg(callerFrame, dest, ObjectValue(inst))
		if ctor, ok := class.findMethod(vm.constructorName); ok {
			full := make([]Value, 0, len(args)+1)
			full = append(full, ObjectValue(inst))
			full = append(full, args...)
			vm.callFunction(ctor.AsFunction(), full, dest)
		} else if len(args) > 0 {
			vm.runtimeError("Expected 0 arguments but got %d.", len(args))
		}
	default:
		vm.runtimeError("Can only call functions, classes, and methods.")
	}
}

func (vm *VM) callFunction(fn *ObjFunction, args []Value, dest byte) {
	if len(args) != fn.Arity {
		vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, len(args))
		return
	}
	if len(vm.frames) >= maxCallFrames {
		vm.runtimeError("Stack overflow.")
		return
	}
	base := vm.stackTop
	vm.ensureRegisters(base, fn.RegisterCount)
	vm.stackTop = base + fn.RegisterCount
	for i := 0; i < fn.RegisterCount; i++ {
		if i < len(args) {
			vm.stack[base+i] = args[i]
		} else {
			vm.stack[base+i] = NullValue()
		}
	}
	vm.frames = append(vm.frames, CallFrame{function: fn, ip: 0, base: base, returnReg: int(dest)})
}

// execReturn pops the current frame. When it is the root frame, the
// result is handed back to Interpret rather than to a caller register.
func (vm *VM) execReturn(frame *CallFrame) (done bool, result Value) {
	srcReg := vm.readByte(frame)
	value := vm.getReg(frame, srcReg)
	vm.stackTop = frame.base

	if len(vm.frames) == 1 {
		vm.frames = vm.frames[:0]
		return true, value
	}

	returnReg := frame.returnReg
	vm.frames = vm.frames[:len(vm.frames)-1]
	caller := &vm.frames[len(vm.frames)-1]
	vm.setReg(caller, byte(returnReg), value)
	return false, Value{}
}

func (vm *VM) runtimeError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	frames := make([]RuntimeFrame, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		name := "<script>"
		if f.function.Name != nil {
			name = f.function.Name.Chars
		}
		line := 0
		if f.ip-1 >= 0 && f.ip-1 < len(f.function.Chunk.Lines) {
			line = f.function.Chunk.Lines[f.ip-1]
		}
		frames = append(frames, RuntimeFrame{FunctionName: name, Line: line})
	}
	panic(&RuntimeError{Message: msg, Frames: frames})
}
