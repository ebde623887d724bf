package patterns

import "github.com/raymyers/ralph-while/pkg/ir"

func op2(target, source ir.Ident, op ir.Op, operand ir.Ident) ir.Node {
	return ir.TwoOperand(target, source, op, operand)
}

// zero is the "x = x - x" reset emitted for loop counters the idiom drains.
func zero(r ir.Ident) ir.Node {
	return ir.TwoOperand(r, r, ir.OpSub, r)
}

func assign(target, source ir.Ident, op ir.Op, c uint64) ir.Node {
	return ir.Assignment{Target: target, Source: source, Op: op, Constant: ir.ConstOf(c)}
}

// Builtin returns the catalog entries in the order they are tried.
// Order matters: the transfer loops also match the inner loops of the
// arithmetic idioms.
func Builtin() []Entry {
	return []Entry{
		{
			Name: "div",
			Source: `x4 = x1 + 0; x5 = x2 + 0; x6 = x3 + 0; x7 = x1 + 0;
				while x7 > 0 do x6 = x6 + 1; x7 = x3 + 0 end;
				x0 = x3 + 0;
				while x5 > 0 do x4 = x4 - 1; x5 = x5 - 1 end;
				while x6 > 0 do
					x4 = x4 + 1;
					while x4 > 0 do
						x5 = x2 + 0;
						while x5 > 0 do x4 = x4 - 1; x5 = x5 - 1 end;
						x0 = x0 + 1
					end;
					x6 = x3 + 0
				end`,
			Replacement: []ir.Node{
				op2("x0", "x1", ir.OpDiv, "x2"),
				zero("x4"), zero("x5"), zero("x6"), zero("x7"),
			},
		},
		{
			Name: "mod",
			Source: `x0 = x1 + 0; x3 = x0 + 1; x4 = x2 + 0;
				while x4 > 0 do x3 = x3 - 1; x4 = x4 - 1 end;
				while x3 > 0 do
					x4 = x2 + 0;
					while x4 > 0 do x0 = x0 - 1; x4 = x4 - 1 end;
					x3 = x0 + 1;
					x4 = x2 + 0;
					while x4 > 0 do x3 = x3 - 1; x4 = x4 - 1 end
				end`,
			Replacement: []ir.Node{
				op2("x0", "x1", ir.OpMod, "x2"),
				zero("x3"), zero("x4"),
			},
		},
		{
			Name: "shl",
			Source: `x9 = x9 + 1; x0 = x1 + 0; x3 = x2 + 0; x4 = x9 + 0;
				while x3 > 0 do
					x6 = x4 + 0;
					while x6 > 0 do x6 = x6 - 1; x4 = x4 + 1 end;
					x3 = x3 - 1
				end;
				x5 = x4 + 0; x10 = x7 + 0;
				while x5 > 0 do
					x8 = x1 + 0;
					while x8 > 0 do x10 = x10 + 1; x8 = x8 - 1 end;
					x5 = x5 - 1
				end;
				x4 = x5 + 0; x0 = x10 + 0`,
			Replacement: []ir.Node{
				op2("x0", "x1", ir.OpShl, "x2"),
				zero("x3"), zero("x5"),
				assign("x10", "x0", ir.OpAdd, 0),
				zero("x6"), zero("x8"),
				assign("x9", "x9", ir.OpAdd, 1),
				assign("x4", "x5", ir.OpAdd, 0),
			},
		},
		{
			Name: "shr",
			Source: `x1 = x2 + 0; x3 = x4 + 0;
				while x1 > 0 do
					x5 = x6 + 0; x7 = x3 + 0; x8 = x7 - 1;
					while x8 > 0 do x7 = x7 - 2; x5 = x5 + 1; x8 = x7 - 1 end;
					x3 = x5 + 0;
					x1 = x1 - 1
				end;
				x9 = x3 + 0`,
			Replacement: []ir.Node{
				op2("x9", "x4", ir.OpShr, "x2"),
				zero("x1"),
				assign("x3", "x9", ir.OpAdd, 0),
				assign("x5", "x3", ir.OpAdd, 0),
				zero("x9"),
				assign("x9", "x9", ir.OpAdd, 2),
				op2("x7", "x3", ir.OpMod, "x9"),
				assign("x9", "x3", ir.OpAdd, 0),
				zero("x8"),
			},
		},
		{
			Name: "mul",
			Source: `x4 = x1 + 0; x5 = x2 + 0; x6 = x5 + 0; x0 = x3 + 0;
				while x4 > 0 Do
					x4 = x4 - 1;
					while x5 > 0 Do x5 = x5 - 1; x0 = x0 + 1 end;
					x5 = x6 + 0
				end`,
			Replacement: []ir.Node{
				op2("x0", "x1", ir.OpMul, "x2"),
				zero("x4"),
				assign("x6", "x5", ir.OpAdd, 0),
				assign("x5", "x6", ir.OpAdd, 0),
			},
		},
		transfer("drain-add", "while x1 > 0 do x1 = x1 - 1; x2 = x2 + 1 end", ir.OpAdd),
		transfer("drain-sub", "while x1 > 0 do x1 = x1 - 1; x2 = x2 - 1 end", ir.OpSub),
		transfer("add-drain", "while x1 > 0 do x2 = x2 + 1; x1 = x1 - 1 end", ir.OpAdd),
		transfer("sub-drain", "while x1 > 0 do x2 = x2 - 1; x1 = x1 - 1 end", ir.OpSub),
	}
}

// transfer builds a rule for a loop that moves x1 into x2 one unit at a
// time and leaves x1 at zero.
func transfer(name, src string, op ir.Op) Entry {
	return Entry{
		Name:        name,
		Source:      src,
		Replacement: []ir.Node{op2("x2", "x2", op, "x1"), zero("x1")},
	}
}
