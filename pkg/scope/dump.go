package scope

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the scope tree, one line per scope and per variable.
func (t *Table) Dump(w io.Writer) {
	t.Walk(func(s *Scope, depth int) {
		indent := strings.Repeat("  ", depth)
		if s.Parent < 0 {
			fmt.Fprintf(w, "%sscope %d (global)\n", indent, s.ID)
		} else {
			fmt.Fprintf(w, "%sscope %d @%d\n", indent, s.ID, t.scopes[s.Parent].childOrder(s.ID))
		}
		for _, v := range s.Vars() {
			fmt.Fprintf(w, "%s  %s", indent, v.Name)
			if v.ID != "" && v.ID != v.Name {
				fmt.Fprintf(w, " -> %s", v.ID)
			}
			fmt.Fprintf(w, " [%s]\n", strings.Join(v.flags(), " "))
		}
	})
}

func (v *Var) flags() []string {
	var f []string
	add := func(set bool, name string) {
		if set {
			f = append(f, name)
		}
	}
	add(v.Global, "global")
	add(v.Temp, "temp")
	add(v.Used, "used")
	add(v.Assigned, "assigned")
	add(v.Recycled, "recycled")
	f = append(f, fmt.Sprintf("order=%d", v.Order))
	return f
}
