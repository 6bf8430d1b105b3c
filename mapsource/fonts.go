package mapsource

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmap-mapsource/engine"
)

// ValidFontExtensions are the extensions of files registered when walking a font directory
var ValidFontExtensions = []string{".ttf", ".otf", ".ttc", ".pfa", ".pfb", ".dfont"}

type FontRegistrationResult struct {
	Added  []string `json:"added"`
	Failed []string `json:"failed"`
}

// FontRegistrar loads font files into the engine's font table and remembers the outcome of every attempt
type FontRegistrar struct {
	logger    *logpkg.Logger
	fs        gofs.Fs
	fontTable engine.FontTable

	mu     sync.Mutex
	result FontRegistrationResult
}

func NewFontRegistrar(logger *logpkg.Logger, fs gofs.Fs, fontTable engine.FontTable) *FontRegistrar {
	return &FontRegistrar{logger: logger, fs: fs, fontTable: fontTable}
}

func isFontFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, validExt := range ValidFontExtensions {
		if ext == validExt {
			return true
		}
	}
	return false
}

// RegisterFonts registers every font file in the given directories (recursively) and every other path given directly.
// Failures are collected in the result, never returned.
// The returned result covers every call made so far.
func (r *FontRegistrar) RegisterFonts(paths []string) FontRegistrationResult {
	for _, path := range paths {
		fileInfo, err := r.fs.Stat(path)
		if err != nil || !fileInfo.IsDir() {
			r.register(path)
			continue
		}

		r.registerDir(path)
	}

	return r.Result()
}

// registerDir registers the font files under dirPath. A directory that can't be read is logged and skipped, its siblings are still searched.
func (r *FontRegistrar) registerDir(dirPath string) {
	fileInfos, err := r.fs.ReadDir(dirPath)
	if err != nil {
		r.logger.Warn("could not read %q while looking for fonts: %s", dirPath, err)
		return
	}

	for _, fileInfo := range fileInfos {
		filePath := filepath.Join(dirPath, fileInfo.Name())

		if fileInfo.IsDir() {
			r.registerDir(filePath)
			continue
		}

		if !isFontFile(filePath) {
			continue
		}

		r.register(filePath)
	}
}

func (r *FontRegistrar) register(path string) {
	ok := r.fontTable.RegisterFont(path)

	r.mu.Lock()
	defer r.mu.Unlock()

	if ok {
		r.result.Added = append(r.result.Added, path)
		r.logger.Debug("registered font %q", path)
		return
	}

	r.result.Failed = append(r.result.Failed, path)
	r.logger.Warn("could not register font %q", path)
}

// Result returns a copy of everything registered so far
func (r *FontRegistrar) Result() FontRegistrationResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	return FontRegistrationResult{
		Added:  append([]string(nil), r.result.Added...),
		Failed: append([]string(nil), r.result.Failed...),
	}
}
