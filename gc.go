package vibelang

// This file is the VM's allocator and its mark-and-sweep collector: a
// non-moving, non-generational collector whose only unusual feature is
// the weak string-intern table swept between mark and sweep.

func (vm *VM) allocate(o Obj, size int) {
	o.setNext(vm.objects)
	vm.objects = o
	o.setBytes(size)
	vm.bytesAllocated += size
}

func (vm *VM) newFunction(name *ObjString, arity int) *ObjFunction {
	fn := newFunction(name, arity)
	vm.allocate(fn, functionBaseBytes)
	return fn
}

func (vm *VM) newArray(elements []Value) *ObjArray {
	arr := newArray(elements)
	vm.allocate(arr, arrayBaseBytes+len(arr.Elements)*valueBytes)
	return arr
}

func (vm *VM) newClass(name *ObjString) *ObjClass {
	class := newClass(name)
	vm.allocate(class, classBaseBytes)
	return class
}

func (vm *VM) newInstance(class *ObjClass) *ObjInstance {
	inst := newInstance(class)
	vm.allocate(inst, instanceBaseBytes)
	return inst
}

func (vm *VM) newBoundMethod(receiver Value, method *ObjFunction) *ObjBoundMethod {
	bm := newBoundMethod(receiver, method)
	vm.allocate(bm, boundMethodBaseBytes)
	return bm
}

// internString returns the canonical *ObjString for chars, allocating and
// interning it only if no equal string has been seen before. Equal byte
// sequences always resolve to the same object identity once interned.
func (vm *VM) internString(chars string) *ObjString {
	hash := fnv1aHash(chars)
	if existing := vm.strings.find(chars, hash); existing != nil {
		return existing
	}
	s := &ObjString{Chars: chars, Hash: hash}
	vm.allocate(s, stringBaseBytes+len(chars))
	vm.strings.define(s)
	return s
}

// CollectGarbage forces a full mark-and-sweep pass: mark every root,
// trace the gray worklist to a fixed point, purge the now-weak string
// table of anything that didn't survive, then sweep vm.objects.
func (vm *VM) CollectGarbage() {
	vm.markRoots()
	vm.traceReferences()
	vm.strings.removeWhite()
	vm.sweep()

	next := 2 * vm.bytesAllocated
	if next < 1024 {
		next = 1024
	}
	vm.nextGC = next
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := range vm.frames {
		vm.markObject(vm.frames[i].function)
	}
	for i, defined := range vm.globalDefined {
		if defined {
			vm.markValue(vm.globalValues[i])
		}
	}
	vm.markObject(vm.constructorName)
}

func (vm *VM) markValue(v Value) {
	if v.IsObject() {
		vm.markObject(v.AsObject())
	}
}

// markObject sets the mark bit and pushes the object onto the gray
// worklist so traceReferences can later blacken it (trace its outgoing
// references). A nil Obj interface is a no-op; a typed nil pointer (such as
// an unset *ObjString Name) is not caught here, so blacken checks optional
// fields before passing them in.
func (vm *VM) markObject(o Obj) {
	if o == nil || o.isMarked() {
		return
	}
	o.setMarked(true)
	vm.grayStack = append(vm.grayStack, o)
}

func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		o := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blacken(o)
	}
}

func (vm *VM) blacken(o Obj) {
	switch obj := o.(type) {
	case *ObjString:
		// no outgoing references
	case *ObjFunction:
		if obj.Name != nil {
			vm.markObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			vm.markValue(c)
		}
	case *ObjArray:
		for _, v := range obj.Elements {
			vm.markValue(v)
		}
	case *ObjClass:
		if obj.Name != nil {
			vm.markObject(obj.Name)
		}
		for _, m := range obj.Methods {
			vm.markObject(m.Name)
			vm.markValue(m.Value)
		}
	case *ObjInstance:
		vm.markObject(obj.Class)
		for _, f := range obj.Fields {
			vm.markObject(f.Name)
			vm.markValue(f.Value)
		}
	case *ObjBoundMethod:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)
	}
}

// sweep walks the intrusive object list, freeing everything left unmarked
// and clearing the mark bit on everything that survived.
func (vm *VM) sweep() {
	var prev Obj
	obj := vm.objects
	for obj != nil {
		if obj.isMarked() {
			obj.setMarked(false)
			prev = obj
			obj = obj.next()
			continue
		}
		unreached := obj
		obj = obj.next()
		if prev != nil {
			prev.setNext(obj)
		} else {
			vm.objects = obj
		}
		vm.bytesAllocated -= unreached.bytes()
	}
}
