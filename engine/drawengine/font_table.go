package drawengine

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/ownmap-mapsource/engine"
	"github.com/jamesrr39/ownmap-mapsource/fonts"
)

var _ engine.FontTable = &FontTable{}

// FontTable holds the fonts available to every canvas of the engine.
// Fonts are found by family name or by file name without extension, case-insensitively.
type FontTable struct {
	fs    gofs.Fs
	mu    sync.RWMutex
	fonts map[string]*truetype.Font
}

func NewFontTable(fs gofs.Fs) *FontTable {
	return &FontTable{
		fs:    fs,
		fonts: make(map[string]*truetype.Font),
	}
}

func (t *FontTable) RegisterFont(path string) bool {
	data, err := t.fs.ReadFile(path)
	if err != nil {
		return false
	}

	font, err := freetype.ParseFont(data)
	if err != nil {
		return false
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	t.mu.Lock()
	defer t.mu.Unlock()

	family := font.Name(truetype.NameIDFontFamily)
	if family != "" {
		t.fonts[strings.ToLower(family)] = font
	}
	t.fonts[strings.ToLower(stem)] = font

	return true
}

// Lookup returns the named font, or the default font if no such font has been registered
func (t *FontTable) Lookup(name string) *truetype.Font {
	t.mu.RLock()
	defer t.mu.RUnlock()

	font, ok := t.fonts[strings.ToLower(name)]
	if !ok {
		return fonts.DefaultFont()
	}

	return font
}

// Names returns the names fonts can be looked up with
func (t *FontTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var names []string
	for name := range t.fonts {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
