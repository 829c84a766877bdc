package lumen

import (
	"encoding/json"
	"fmt"
)

// testStep represents a single action in a test script.
type testStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Key    string  `json:"key,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

// testScript is the top-level JSON structure for a test script.
type testScript struct {
	Steps []testStep `json:"steps"`
}

// Snapshot is the state of every tracked element captured by a "snapshot"
// step.
type Snapshot struct {
	Label  string
	Frame  uint64
	States map[string]VisualState
}

// TestRunner sequences injected input across frames for scripted
// playback of a page. Attach to an Engine via SetTestRunner.
type TestRunner struct {
	steps     []testStep
	cursor    int
	waitCount int
	done      bool
	snapshots []Snapshot
}

var keyNames = map[string]Key{
	"Escape":    KeyEscape,
	"Enter":     KeyEnter,
	"Space":     KeySpace,
	"ArrowUp":   KeyArrowUp,
	"ArrowDown": KeyArrowDown,
	"PageUp":    KeyPageUp,
	"PageDown":  KeyPageDown,
	"Home":      KeyHome,
	"End":       KeyEnd,
}

// ParseKey resolves a DOM key name ("Escape", "ArrowDown").
func ParseKey(name string) Key {
	return keyNames[name]
}

// LoadTestScript parses a JSON test script and returns a TestRunner ready
// to be attached to an Engine via SetTestRunner.
func LoadTestScript(jsonData []byte) (*TestRunner, error) {
	var script testScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse test script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse test script: no steps")
	}
	for i, st := range script.Steps {
		switch st.Action {
		case "scroll", "move", "click", "wait", "snapshot":
		case "key":
			if ParseKey(st.Key) == KeyUnknown {
				return nil, fmt.Errorf("parse test script: step %d: unknown key %q", i, st.Key)
			}
		default:
			return nil, fmt.Errorf("parse test script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &TestRunner{steps: script.Steps}, nil
}

// SetTestRunner attaches a TestRunner to the engine. The runner's step
// method is called from UpdateAt before input is processed each frame.
func (e *Engine) SetTestRunner(runner *TestRunner) {
	e.testRunner = runner
}

// Done reports whether all steps in the test script have been executed.
func (r *TestRunner) Done() bool {
	return r.done
}

// Snapshots returns the snapshots captured so far.
func (r *TestRunner) Snapshots() []Snapshot {
	return r.snapshots
}

// step advances the test runner by one frame. Called from Engine.UpdateAt.
func (r *TestRunner) step(e *Engine) {
	if r.done {
		return
	}
	// Count down wait frames.
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "scroll":
		e.InjectScroll(st.DY)
	case "move":
		e.InjectPointer(st.X, st.Y)
	case "click":
		e.InjectClick(st.X, st.Y)
	case "key":
		e.InjectKey(ParseKey(st.Key))
	case "snapshot":
		r.snapshots = append(r.snapshots, e.snapshot(st.Label))
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	// Check if we've reached the end after executing.
	if r.cursor >= len(r.steps) && r.waitCount == 0 {
		r.done = true
	}
}

func (e *Engine) snapshot(label string) Snapshot {
	s := Snapshot{Label: label, Frame: e.frames, States: make(map[string]VisualState, len(e.elements))}
	for _, el := range e.elements {
		if !el.IsDisposed() {
			s.States[el.Name] = el.State()
		}
	}
	return s
}
