package workflow

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	macrowerrors "github.com/alexisbeaulieu97/macrow/pkg/errors"
)

// Step kinds understood by the engine.
const (
	KindMouseMove    = "mouse_move"
	KindMouseClick   = "mouse_click"
	KindMouseHold    = "mouse_hold"
	KindMouseRelease = "mouse_release"
	KindKeyType      = "key_type"
	KindKeyPress     = "key_press"
	KindImageFind    = "image_find"
	KindConditional  = "conditional"
	KindLoop         = "loop"
)

// DefaultThreshold is applied to image_find steps that omit a match threshold.
const DefaultThreshold = 0.8

// Step is one unit of an automation workflow: a single input effect, a
// screen query, or a control-flow construct. Exactly one payload pointer is
// non-nil, selected by Kind.
type Step struct {
	Kind  string  `yaml:"kind"`
	Delay float64 `yaml:"delay,omitempty"`

	MouseMove    *MouseMoveStep    `yaml:"-"`
	MouseClick   *MouseClickStep   `yaml:"-"`
	MouseHold    *MouseHoldStep    `yaml:"-"`
	MouseRelease *MouseReleaseStep `yaml:"-"`
	KeyType      *KeyTypeStep      `yaml:"-"`
	KeyPress     *KeyPressStep     `yaml:"-"`
	ImageFind    *ImageFindStep    `yaml:"-"`
	Conditional  *ConditionalStep  `yaml:"-"`
	Loop         *LoopStep         `yaml:"-"`
}

// MouseMoveStep moves the pointer to absolute screen coordinates.
type MouseMoveStep struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// MouseClickStep clicks at the current pointer position.
type MouseClickStep struct {
	Button string `yaml:"button" validate:"required,oneof=left right"`
	Double bool   `yaml:"double,omitempty"`
}

// MouseHoldStep presses a button without releasing it.
type MouseHoldStep struct {
	Button string `yaml:"button" validate:"required,oneof=left right"`
}

// MouseReleaseStep releases a previously held button.
type MouseReleaseStep struct {
	Button string `yaml:"button" validate:"required,oneof=left right"`
}

// KeyTypeStep types a literal text string.
type KeyTypeStep struct {
	Text string `yaml:"text" validate:"required"`
}

// KeyPressStep presses a key or hotkey combination. The final symbol is the
// key itself; any preceding symbols are modifiers, in press order.
type KeyPressStep struct {
	Keys []string `yaml:"keys" validate:"required,min=1,dive,key_symbol"`
}

// ImageFindStep searches the screen for a template image.
type ImageFindStep struct {
	Template     string  `yaml:"template" validate:"required"`
	Threshold    float64 `yaml:"threshold" validate:"gt=0,lte=1"`
	ClickOnMatch bool    `yaml:"click_on_match,omitempty"`
}

// Predicate is the condition evaluated by a conditional step. Only the
// clipboard source exists today.
type Predicate struct {
	Source string `yaml:"source" validate:"required,oneof=clipboard"`
	Mode   string `yaml:"mode" validate:"required,oneof=equals contains"`
	Value  string `yaml:"value"`
}

// ConditionalStep branches on a predicate over externally owned state.
type ConditionalStep struct {
	Predicate Predicate `yaml:"predicate"`
	Then      []Step    `yaml:"then"`
	Else      []Step    `yaml:"else,omitempty"`
}

// LoopStep repeats its body a fixed number of times.
type LoopStep struct {
	Count int    `yaml:"count" validate:"min=1"`
	Body  []Step `yaml:"body"`
}

// requiredKeys lists the fields that must be present in a persisted step
// record for each kind. Absence is a FormatError, not a ValidationError.
var requiredKeys = map[string][]string{
	KindMouseMove:    {"x", "y"},
	KindMouseClick:   {"button"},
	KindMouseHold:    {"button"},
	KindMouseRelease: {"button"},
	KindKeyType:      {"text"},
	KindKeyPress:     {"keys"},
	KindImageFind:    {"template"},
	KindConditional:  {"predicate"},
	KindLoop:         {"count"},
}

// UnmarshalYAML decodes a step record, dispatching on the kind discriminator
// to populate exactly one payload.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	type baseStep struct {
		Kind  string  `yaml:"kind"`
		Delay float64 `yaml:"delay"`
	}

	var base baseStep
	if err := value.Decode(&base); err != nil {
		return err
	}
	if base.Kind == "" {
		return macrowerrors.NewFormatError("", "kind", nil)
	}

	required, known := requiredKeys[base.Kind]
	if !known {
		return macrowerrors.NewFormatErrorKind("", base.Kind, nil)
	}
	for _, key := range required {
		if !hasYAMLKey(value, key) {
			return macrowerrors.NewFormatError("", key, nil)
		}
	}

	s.Kind = base.Kind
	s.Delay = base.Delay

	s.MouseMove = nil
	s.MouseClick = nil
	s.MouseHold = nil
	s.MouseRelease = nil
	s.KeyType = nil
	s.KeyPress = nil
	s.ImageFind = nil
	s.Conditional = nil
	s.Loop = nil

	switch base.Kind {
	case KindMouseMove:
		var mv MouseMoveStep
		if err := value.Decode(&mv); err != nil {
			return err
		}
		s.MouseMove = &mv
	case KindMouseClick:
		var cl MouseClickStep
		if err := value.Decode(&cl); err != nil {
			return err
		}
		s.MouseClick = &cl
	case KindMouseHold:
		var hd MouseHoldStep
		if err := value.Decode(&hd); err != nil {
			return err
		}
		s.MouseHold = &hd
	case KindMouseRelease:
		var rl MouseReleaseStep
		if err := value.Decode(&rl); err != nil {
			return err
		}
		s.MouseRelease = &rl
	case KindKeyType:
		var kt KeyTypeStep
		if err := value.Decode(&kt); err != nil {
			return err
		}
		s.KeyType = &kt
	case KindKeyPress:
		var kp KeyPressStep
		if err := value.Decode(&kp); err != nil {
			return err
		}
		s.KeyPress = &kp
	case KindImageFind:
		var imf ImageFindStep
		if err := value.Decode(&imf); err != nil {
			return err
		}
		if !hasYAMLKey(value, "threshold") {
			imf.Threshold = DefaultThreshold
		}
		s.ImageFind = &imf
	case KindConditional:
		var cond ConditionalStep
		if err := value.Decode(&cond); err != nil {
			return err
		}
		predNode := childNode(value, "predicate")
		if predNode == nil || !hasYAMLKey(predNode, "value") {
			return macrowerrors.NewFormatError("", "predicate.value", nil)
		}
		if cond.Predicate.Source == "" {
			cond.Predicate.Source = "clipboard"
		}
		if cond.Predicate.Mode == "" {
			cond.Predicate.Mode = "contains"
		}
		s.Conditional = &cond
	case KindLoop:
		var loop LoopStep
		if err := value.Decode(&loop); err != nil {
			return err
		}
		s.Loop = &loop
	}

	return nil
}

type stepHeader struct {
	Kind  string  `yaml:"kind"`
	Delay float64 `yaml:"delay,omitempty"`
}

// MarshalYAML encodes a step record with the kind discriminator first and the
// payload fields inline, mirroring the decode shape exactly.
func (s Step) MarshalYAML() (interface{}, error) {
	hdr := stepHeader{Kind: s.Kind, Delay: s.Delay}

	switch s.Kind {
	case KindMouseMove:
		if s.MouseMove == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader `yaml:",inline"`
			X          int `yaml:"x"`
			Y          int `yaml:"y"`
		}{hdr, s.MouseMove.X, s.MouseMove.Y}, nil
	case KindMouseClick:
		if s.MouseClick == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader `yaml:",inline"`
			Button     string `yaml:"button"`
			Double     bool   `yaml:"double,omitempty"`
		}{hdr, s.MouseClick.Button, s.MouseClick.Double}, nil
	case KindMouseHold:
		if s.MouseHold == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader `yaml:",inline"`
			Button     string `yaml:"button"`
		}{hdr, s.MouseHold.Button}, nil
	case KindMouseRelease:
		if s.MouseRelease == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader `yaml:",inline"`
			Button     string `yaml:"button"`
		}{hdr, s.MouseRelease.Button}, nil
	case KindKeyType:
		if s.KeyType == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader `yaml:",inline"`
			Text       string `yaml:"text"`
		}{hdr, s.KeyType.Text}, nil
	case KindKeyPress:
		if s.KeyPress == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader `yaml:",inline"`
			Keys       []string `yaml:"keys"`
		}{hdr, s.KeyPress.Keys}, nil
	case KindImageFind:
		if s.ImageFind == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader   `yaml:",inline"`
			Template     string  `yaml:"template"`
			Threshold    float64 `yaml:"threshold"`
			ClickOnMatch bool    `yaml:"click_on_match,omitempty"`
		}{hdr, s.ImageFind.Template, s.ImageFind.Threshold, s.ImageFind.ClickOnMatch}, nil
	case KindConditional:
		if s.Conditional == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader `yaml:",inline"`
			Predicate  Predicate `yaml:"predicate"`
			Then       []Step    `yaml:"then"`
			Else       []Step    `yaml:"else,omitempty"`
		}{hdr, s.Conditional.Predicate, s.Conditional.Then, s.Conditional.Else}, nil
	case KindLoop:
		if s.Loop == nil {
			return nil, missingPayload(s.Kind)
		}
		return struct {
			stepHeader `yaml:",inline"`
			Count      int    `yaml:"count"`
			Body       []Step `yaml:"body"`
		}{hdr, s.Loop.Count, s.Loop.Body}, nil
	}

	return nil, macrowerrors.NewFormatErrorKind("", s.Kind, nil)
}

func missingPayload(kind string) error {
	return fmt.Errorf("step %q has no payload", kind)
}

// Summary renders a short human-readable description of a step, used by the
// show command and by callers that list workflow contents.
func (s Step) Summary() string {
	switch s.Kind {
	case KindMouseMove:
		return fmt.Sprintf("mouse move to (%d,%d)", s.MouseMove.X, s.MouseMove.Y)
	case KindMouseClick:
		if s.MouseClick.Double {
			return fmt.Sprintf("mouse double-click %s", s.MouseClick.Button)
		}
		return fmt.Sprintf("mouse click %s", s.MouseClick.Button)
	case KindMouseHold:
		return fmt.Sprintf("mouse hold %s", s.MouseHold.Button)
	case KindMouseRelease:
		return fmt.Sprintf("mouse release %s", s.MouseRelease.Button)
	case KindKeyType:
		return fmt.Sprintf("type %q", truncate(s.KeyType.Text, 20))
	case KindKeyPress:
		return fmt.Sprintf("press %s", strings.Join(s.KeyPress.Keys, "+"))
	case KindImageFind:
		name := filepath.Base(s.ImageFind.Template)
		if s.ImageFind.ClickOnMatch {
			return fmt.Sprintf("find image %q and click", name)
		}
		return fmt.Sprintf("find image %q", name)
	case KindConditional:
		p := s.Conditional.Predicate
		return fmt.Sprintf("if %s %s %q (%d then, %d else)",
			p.Source, p.Mode, truncate(p.Value, 20), len(s.Conditional.Then), len(s.Conditional.Else))
	case KindLoop:
		return fmt.Sprintf("loop %d times (%d steps)", s.Loop.Count, len(s.Loop.Body))
	}
	return "unknown step"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func hasYAMLKey(node *yaml.Node, key string) bool {
	if node == nil || node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i < len(node.Content); i += 2 {
		k := node.Content[i]
		if strings.EqualFold(k.Value, key) {
			return true
		}
	}
	return false
}

func childNode(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content); i += 2 {
		if strings.EqualFold(node.Content[i].Value, key) {
			return node.Content[i+1]
		}
	}
	return nil
}
