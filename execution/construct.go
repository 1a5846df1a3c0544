package execution

import (
	"reflect"
)

type defaultNode struct {
	typed
	value any
}

func (n *defaultNode) Run(*Closure) (any, error) { return n.value, nil }

func (n *defaultNode) String() string { return "default(" + n.t.String() + ")" }

// zeroNode is new T() for a type without a matching constructor. Pointers to
// structs are allocated; everything else is the zero value.
type zeroNode struct {
	typed
}

func (n *zeroNode) Run(*Closure) (any, error) {
	rt := n.t.Reflect()
	if rt.Kind() == reflect.Pointer && rt.Elem().Kind() == reflect.Struct {
		return reflect.New(rt.Elem()).Interface(), nil
	}
	return reflect.Zero(rt).Interface(), nil
}

func (n *zeroNode) String() string { return "new " + n.t.String() + "()" }

type newArrayNode struct {
	typed
	elem     reflect.Type
	elements []Node
}

func (n *newArrayNode) Run(c *Closure) (any, error) {
	res := reflect.MakeSlice(n.t.Reflect(), len(n.elements), len(n.elements))
	for i, e := range n.elements {
		v, err := e.Run(c)
		if err != nil {
			return nil, err
		}
		res.Index(i).Set(reflectValue(v, n.elem))
	}
	return res.Interface(), nil
}

func (n *newArrayNode) String() string {
	return "[]" + n.elem.String() + "{" + argString(n.elements) + "}"
}
