// SPDX-License-Identifier: GPL-3.0-or-later

package value

import (
	"github.com/bassosimone/netcore/sax"
)

// Builder implements [sax.Handler], assembling a [Value] tree from the
// event stream a parser produces. Use [Builder.Value] once the stream is
// exhausted to retrieve the result.
type Builder struct {
	depth  sax.DepthGuard
	roots  []Value
	frames []frame
}

type frame struct {
	kind Kind
	arr  *Array
	obj  *Object
	key  string
}

var _ sax.Handler = (*Builder)(nil)

func (b *Builder) emit(v Value) error {
	if len(b.frames) == 0 {
		b.roots = append(b.roots, v)
		return nil
	}
	top := &b.frames[len(b.frames)-1]
	switch top.kind {
	case KindArray:
		top.arr.PushBack(v)
	case KindObject:
		top.obj.Insert(top.key, v)
		top.key = ""
	}
	return nil
}

func (b *Builder) Null() error            { return b.emit(Null()) }
func (b *Builder) Bool(v bool) error      { return b.emit(Bool(v)) }
func (b *Builder) Int(v int64) error      { return b.emit(Int64(v)) }
func (b *Builder) Uint(v uint64) error    { return b.emit(Uint64(v)) }
func (b *Builder) Real(v float64) error   { return b.emit(Double(v)) }
func (b *Builder) String(v string) error  { return b.emit(String(v)) }

func (b *Builder) StartArray(hint int) error {
	if err := b.depth.Enter(); err != nil {
		return err
	}
	arr := &Array{}
	if hint > 0 {
		arr.Reserve(hint)
	}
	b.frames = append(b.frames, frame{kind: KindArray, arr: arr})
	return nil
}

func (b *Builder) EndArray() error {
	b.depth.Leave()
	top := b.frames[len(b.frames)-1]
	b.frames = b.frames[:len(b.frames)-1]
	return b.emit(Value{tag: KindArray, arr: top.arr})
}

func (b *Builder) StartObject(hint int) error {
	if err := b.depth.Enter(); err != nil {
		return err
	}
	b.frames = append(b.frames, frame{kind: KindObject, obj: &Object{}})
	return nil
}

func (b *Builder) EndObject() error {
	b.depth.Leave()
	top := b.frames[len(b.frames)-1]
	b.frames = b.frames[:len(b.frames)-1]
	return b.emit(Value{tag: KindObject, obj: top.obj})
}

func (b *Builder) Key(v string) error {
	b.frames[len(b.frames)-1].key = v
	return nil
}

// Value returns the single value the event stream built. It panics if no
// complete top-level value was built, which indicates a parser bug: a
// well-formed stream always calls exactly one terminal event (a scalar,
// or a balanced Start/End container pair) at depth zero before returning.
func (b *Builder) Value() Value {
	if len(b.roots) != 1 {
		panic("value: builder did not receive exactly one top-level value")
	}
	return b.roots[0]
}
