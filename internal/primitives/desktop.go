package primitives

import (
	"fmt"
	"image"
	_ "image/png"
	"os"

	"github.com/atotto/clipboard"
	"github.com/go-vgo/robotgo"
	"github.com/vcaesar/bitmap"

	"github.com/alexisbeaulieu97/macrow/internal/logger"
	macrowerrors "github.com/alexisbeaulieu97/macrow/pkg/errors"
)

// Desktop is the production Actuator. Input injection and screen search go
// through robotgo; clipboard reads go through the system clipboard.
type Desktop struct {
	log *logger.Logger
}

// NewDesktop creates an Actuator bound to the local desktop.
func NewDesktop(log *logger.Logger) *Desktop {
	return &Desktop{log: log}
}

var _ Actuator = (*Desktop)(nil)

// MoveTo moves the pointer to absolute screen coordinates.
func (d *Desktop) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

// Click presses and releases a button at the current pointer position.
func (d *Desktop) Click(button string, double bool) error {
	robotgo.Click(button, double)
	return nil
}

// MouseDown presses a button without releasing it.
func (d *Desktop) MouseDown(button string) error {
	if err := robotgo.Toggle(button, "down"); err != nil {
		return macrowerrors.NewPrimitiveError("mouseDown", err)
	}
	return nil
}

// MouseUp releases a button.
func (d *Desktop) MouseUp(button string) error {
	if err := robotgo.Toggle(button, "up"); err != nil {
		return macrowerrors.NewPrimitiveError("mouseUp", err)
	}
	return nil
}

// TypeText types a literal string.
func (d *Desktop) TypeText(s string) error {
	robotgo.TypeStr(s)
	return nil
}

// PressKeys presses the final symbol with any preceding symbols held as
// modifiers.
func (d *Desktop) PressKeys(symbols []string) error {
	if len(symbols) == 0 {
		return macrowerrors.NewPrimitiveError("pressKeys", fmt.Errorf("no key symbols"))
	}

	key := symbols[len(symbols)-1]
	mods := make([]interface{}, 0, len(symbols)-1)
	for _, mod := range symbols[:len(symbols)-1] {
		mods = append(mods, mod)
	}

	if err := robotgo.KeyTap(key, mods...); err != nil {
		return macrowerrors.NewPrimitiveError("pressKeys", err)
	}
	return nil
}

// FindImage searches the screen once for the template image. The step's
// match threshold maps onto robotgo's tolerance, where 0 demands an exact
// match.
func (d *Desktop) FindImage(template string, threshold float64) (Match, error) {
	width, height, err := imageSize(template)
	if err != nil {
		return Match{}, macrowerrors.NewPrimitiveError("findImage", err)
	}

	bit := bitmap.Open(template)
	if bit == nil {
		return Match{}, macrowerrors.NewPrimitiveError("findImage", fmt.Errorf("open template %s", template))
	}
	defer robotgo.FreeBitmap(bit)

	tolerance := 1 - threshold
	x, y := bitmap.Find(bit, tolerance)
	if x < 0 || y < 0 {
		d.log.WithFields(map[string]any{"template": template}).Debug("image search found no match")
		return Match{}, macrowerrors.NewPrimitiveError("findImage", ErrNotFound)
	}

	return Match{X: x, Y: y, Width: width, Height: height}, nil
}

// ReadClipboard returns the current clipboard text.
func (d *Desktop) ReadClipboard() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", macrowerrors.NewPrimitiveError("readClipboard", err)
	}
	return text, nil
}

func imageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
