package ir

// Flatten returns a copy of n in which every Sequence holds its statements
// directly: nested sequences are spliced into their parent's list. Shape
// differences between sequences disappear, so Flatten of any nesting of
// the same statements gives the same tree.
func Flatten(n Node) Node {
	switch n := n.(type) {
	case Program:
		if n.Body == nil {
			return n
		}
		return Program{Body: Flatten(n.Body)}
	case Sequence:
		return Sequence{Stmts: flattenInto(nil, n.Stmts)}
	case While:
		return While{Cond: n.Cond, Body: Flatten(n.Body)}
	default:
		return n
	}
}

func flattenInto(dst []Node, stmts []Node) []Node {
	if dst == nil {
		dst = make([]Node, 0, len(stmts))
	}
	for _, s := range stmts {
		if seq, ok := s.(Sequence); ok {
			dst = flattenInto(dst, seq.Stmts)
			continue
		}
		dst = append(dst, Flatten(s))
	}
	return dst
}

// Unflatten rebuilds the canonical right-nested form: a list a, b, c, d
// becomes Sequence(a, Sequence(b, Sequence(c, d))). Sequences with fewer
// than two statements are left as they are.
func Unflatten(n Node) Node {
	switch n := n.(type) {
	case Program:
		if n.Body == nil {
			return n
		}
		return Program{Body: Unflatten(n.Body)}
	case Sequence:
		stmts := flattenInto(nil, n.Stmts)
		for i := range stmts {
			stmts[i] = Unflatten(stmts[i])
		}
		if len(stmts) < 2 {
			return Sequence{Stmts: stmts}
		}
		return nest(stmts)
	case While:
		return While{Cond: n.Cond, Body: Unflatten(n.Body)}
	default:
		return n
	}
}

func nest(stmts []Node) Node {
	if len(stmts) == 1 {
		return stmts[0]
	}
	return Sequence{Stmts: []Node{stmts[0], nest(stmts[1:])}}
}

// Statements returns the flat statement list of a sequence, or n itself as
// a one-element list.
func Statements(n Node) []Node {
	if seq, ok := n.(Sequence); ok {
		return flattenInto(nil, seq.Stmts)
	}
	if n == nil {
		return nil
	}
	return []Node{n}
}

// Equal reports whether two trees are structurally identical.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case nil:
		return b == nil
	case Program:
		b, ok := b.(Program)
		return ok && Equal(a.Body, b.Body)
	case Sequence:
		b, ok := b.(Sequence)
		if !ok || len(a.Stmts) != len(b.Stmts) {
			return false
		}
		for i := range a.Stmts {
			if !Equal(a.Stmts[i], b.Stmts[i]) {
				return false
			}
		}
		return true
	case Assignment:
		b, ok := b.(Assignment)
		return ok && a == b
	case AssignmentTwoOperand:
		b, ok := b.(AssignmentTwoOperand)
		return ok && a == b
	case While:
		b, ok := b.(While)
		return ok && a.Cond == b.Cond && Equal(a.Body, b.Body)
	case Condition:
		b, ok := b.(Condition)
		return ok && a == b
	case Print:
		b, ok := b.(Print)
		return ok && a == b
	case Empty:
		b, ok := b.(Empty)
		return ok && a == b
	}
	return false
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of the current node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case Program:
		Walk(n.Body, fn)
	case Sequence:
		for _, s := range n.Stmts {
			Walk(s, fn)
		}
	case While:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	}
}

// Idents lists every identifier in n in pre-order, duplicates included.
func Idents(n Node) []Ident {
	var ids []Ident
	Walk(n, func(n Node) bool {
		switch n := n.(type) {
		case Assignment:
			ids = append(ids, n.Target, n.Source)
		case AssignmentTwoOperand:
			ids = append(ids, n.Target, n.Source, n.Operand)
		case Condition:
			ids = append(ids, n.Var)
		case Print:
			ids = append(ids, n.Var)
		}
		return true
	})
	return ids
}
