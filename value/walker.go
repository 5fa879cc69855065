// SPDX-License-Identifier: GPL-3.0-or-later

package value

import "github.com/bassosimone/netcore/sax"

// Walk drives h through v's event stream, the inverse of [Builder]: a
// scalar produces one event, an array or object produces a balanced
// Start/End pair with one event per element/member in between.
func Walk(v Value, h sax.Handler) error {
	var depth sax.DepthGuard
	return walk(v, h, &depth)
}

func walk(v Value, h sax.Handler, depth *sax.DepthGuard) error {
	switch v.tag {
	case KindNull:
		return h.Null()
	case KindBool:
		return h.Bool(v.b)
	case KindInt32, KindInt64:
		return h.Int(v.i)
	case KindUint32, KindUint64:
		return h.Uint(v.u)
	case KindDouble:
		return h.Real(v.f)
	case KindString:
		return h.String(v.s)
	case KindArray:
		if err := depth.Enter(); err != nil {
			return err
		}
		defer depth.Leave()
		if err := h.StartArray(v.arr.Len()); err != nil {
			return err
		}
		for _, item := range v.arr.Items() {
			if err := walk(item, h, depth); err != nil {
				return err
			}
		}
		return h.EndArray()
	case KindObject:
		if err := depth.Enter(); err != nil {
			return err
		}
		defer depth.Leave()
		if err := h.StartObject(v.obj.Len()); err != nil {
			return err
		}
		for _, m := range v.obj.Members() {
			if err := h.Key(m.Key); err != nil {
				return err
			}
			if err := walk(m.Value, h, depth); err != nil {
				return err
			}
		}
		return h.EndObject()
	default:
		return h.Null()
	}
}
