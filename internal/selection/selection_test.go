package selection

import "testing"

func TestStep_DownCycle(t *testing.T) {
	// -1 -> 0 -> 1 -> 2 -> -1
	want := []int{0, 1, 2, None, 0}
	idx := None
	for i, w := range want {
		idx = Step(idx, 3, Down)
		if idx != w {
			t.Fatalf("step %d: index = %d, want %d", i, idx, w)
		}
	}
}

func TestStep_UpCycle(t *testing.T) {
	// -1 -> 2 -> 1 -> 0 -> -1
	want := []int{2, 1, 0, None, 2}
	idx := None
	for i, w := range want {
		idx = Step(idx, 3, Up)
		if idx != w {
			t.Fatalf("step %d: index = %d, want %d", i, idx, w)
		}
	}
}

func TestStep_SingleItem(t *testing.T) {
	if got := Step(None, 1, Down); got != 0 {
		t.Errorf("Step(-1, 1, down) = %d, want 0", got)
	}
	if got := Step(0, 1, Down); got != None {
		t.Errorf("Step(0, 1, down) = %d, want -1", got)
	}
	if got := Step(0, 1, Up); got != None {
		t.Errorf("Step(0, 1, up) = %d, want -1", got)
	}
}

func TestStep_Empty(t *testing.T) {
	if got := Step(None, 0, Down); got != None {
		t.Errorf("Step on empty = %d, want -1", got)
	}
}

func TestNavigate_NoOpWhenEmptyOrHidden(t *testing.T) {
	l := New()
	if l.Down() {
		t.Error("Down() on empty list reported a change")
	}
	if l.Index() != None {
		t.Errorf("Index() = %d, want -1", l.Index())
	}

	l.Replace([]string{"a", "b"})
	l.Hide()
	if l.Up() {
		t.Error("Up() on hidden list reported a change")
	}
	if l.Index() != None {
		t.Errorf("Index() = %d, want -1", l.Index())
	}
}

func TestReplace_ResetsSelection(t *testing.T) {
	l := New()
	l.Replace([]string{"a", "b", "c"})
	l.Down()
	l.Down()
	if l.Index() != 1 {
		t.Fatalf("Index() = %d, want 1", l.Index())
	}

	l.Replace([]string{"x", "y"})
	if l.Index() != None {
		t.Errorf("Index() after Replace = %d, want -1", l.Index())
	}
	if !l.Visible() {
		t.Error("Visible() = false after non-empty Replace")
	}

	l.Replace(nil)
	if l.Visible() {
		t.Error("Visible() = true after empty Replace")
	}
}

func TestReplace_CopiesInput(t *testing.T) {
	items := []string{"a", "b"}
	l := New()
	l.Replace(items)
	items[0] = "mutated"
	if got := l.Items()[0]; got != "a" {
		t.Errorf("Items()[0] = %q, want %q", got, "a")
	}
}

func TestCommit_Selected(t *testing.T) {
	l := New()
	l.Replace([]string{"a", "b", "c"})
	l.Down()
	l.Down()

	got, ok := l.Commit()
	if !ok || got != "b" {
		t.Fatalf("Commit() = (%q, %v), want (%q, true)", got, ok, "b")
	}
	if l.Index() != None {
		t.Errorf("Index() = %d, want -1", l.Index())
	}
	if l.Visible() {
		t.Error("Visible() = true after commit")
	}
}

func TestCommit_Unselected(t *testing.T) {
	l := New()
	l.Replace([]string{"a"})

	got, ok := l.Commit()
	if ok || got != "" {
		t.Errorf("Commit() = (%q, %v), want (\"\", false)", got, ok)
	}
	if l.Visible() {
		t.Error("Visible() = true, want list hidden")
	}
	if len(l.Items()) != 1 {
		t.Error("Commit() with no selection must not drop items")
	}
}

func TestCommitAt(t *testing.T) {
	tests := []struct {
		name   string
		index  int
		want   string
		wantOK bool
	}{
		{"first", 0, "a", true},
		{"last", 2, "c", true},
		{"negative", -1, "", false},
		{"past end", 3, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			l.Replace([]string{"a", "b", "c"})
			got, ok := l.CommitAt(tt.index)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CommitAt(%d) = (%q, %v), want (%q, %v)", tt.index, got, ok, tt.want, tt.wantOK)
			}
			if l.Visible() {
				t.Error("list still visible after CommitAt")
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("up"); err != nil || d != Up {
		t.Errorf("ParseDirection(up) = (%q, %v)", d, err)
	}
	if d, err := ParseDirection("down"); err != nil || d != Down {
		t.Errorf("ParseDirection(down) = (%q, %v)", d, err)
	}
	if _, err := ParseDirection("left"); err == nil {
		t.Error("ParseDirection(left) = nil error, want error")
	}
}
