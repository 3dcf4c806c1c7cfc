/*
Copyright 2024 The static-subid Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"bufio"
	"io/fs"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/containertools/static-subid/pkg/constants"
	"github.com/containertools/static-subid/pkg/system"
	"github.com/containertools/static-subid/pkg/validate"
)

// Sources is the ordered list of configuration locations, lowest priority
// first. Every source is optional.
type Sources struct {
	// LoginDefs is the shadow-utils base file.
	LoginDefs string
	// ConfigFile is the primary configuration file.
	ConfigFile string
	// DropInDir is scanned for *.conf fragments, applied in lexicographic
	// order after ConfigFile.
	DropInDir string
}

// DefaultSources returns the standard source locations.
func DefaultSources() Sources {
	return Sources{
		LoginDefs:  constants.LoginDefsPath,
		ConfigFile: constants.ConfigFilePath,
		DropInDir:  constants.DropInDirPath,
	}
}

// Loader builds a Config by layering sources over the hardcoded defaults.
type Loader struct {
	sys system.Interface
}

// NewLoader returns a Loader reading through sys.
func NewLoader(sys system.Interface) *Loader {
	return &Loader{sys: sys}
}

// Load resolves the configuration: defaults first, then the base file, the
// primary file and finally the drop-in fragments, each recognized key
// overwriting whatever value preceded it. A missing or insecure file source
// is skipped; a security or scan failure on the drop-in directory itself
// fails the whole load, since directory security gates everything beneath
// it. Callers only ever see the fully merged result or an error.
func (l *Loader) Load(sources Sources) (*Config, error) {
	cfg := Default()
	logrus.Debug("loading configuration (defaults set)")

	l.parseFile(sources.LoginDefs, cfg)
	l.parseFile(sources.ConfigFile, cfg)
	if err := l.loadDropInDir(sources.DropInDir, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseFile merges one file source into cfg. All failures are contained to
// the source: a missing file contributes nothing, an insecure or unreadable
// one is skipped with a diagnostic, and cfg keeps its prior values either
// way.
func (l *Loader) parseFile(path string, cfg *Config) {
	h, err := validate.OpenSecureFile(l.sys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.Debugf("config file does not exist: %s", path)
		} else {
			logrus.Warnf("skipping config file %s: %v", path, err)
		}
		return
	}
	defer h.Close()
	logrus.Debugf("parsing config file: %s", path)

	scanner := bufio.NewScanner(h)
	scanner.Buffer(make([]byte, constants.MaxLineLen), constants.MaxLineLen)
	for scanner.Scan() {
		line := normalizeLine(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			logrus.Debugf("skipping key without value: %s", line)
			continue
		}
		applyValue(cfg, key, value, path)
	}
	if err := scanner.Err(); err != nil {
		logrus.Warnf("reading config file %s: %v", path, err)
	}
}

// loadDropInDir merges every *.conf fragment of dir into cfg, in sorted
// order. A missing directory is fine; anything else wrong with the
// directory itself is fatal. Per-file failures only skip that file.
func (l *Loader) loadDropInDir(dir string, cfg *Config) error {
	if err := validate.SecureDirectory(l.sys, dir); err != nil {
		return errors.Wrap(err, "validating drop-in directory")
	}
	logrus.Debugf("scanning config directory if found: %s", dir)

	names, err := l.sys.ReadDirNames(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "scanning directory %s", dir)
	}

	for _, name := range names {
		if !isDropInName(name) {
			continue
		}
		// Validate the raw name again before forming a path, in case
		// the directory listing handed back something hostile.
		if strings.Contains(name, "/") {
			logrus.Debugf("skipping filename with path separator: %s", name)
			continue
		}
		if strings.HasPrefix(name, "..") {
			logrus.Debugf("skipping filename with path traversal: %s", name)
			continue
		}
		if len(dir)+1+len(name) >= validate.MaxPathLen {
			logrus.Warnf("path too long: %s/%s", dir, name)
			continue
		}
		path := dir + "/" + name
		logrus.Debugf("processing config file: %s", path)
		l.parseFile(path, cfg)
	}
	return nil
}

// isDropInName keeps non-hidden names with the drop-in suffix.
func isDropInName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return len(name) > len(constants.DropInSuffix) && strings.HasSuffix(name, constants.DropInSuffix)
}

// normalizeLine truncates at the first '#', then trims surrounding
// whitespace. Comment stripping runs first so "KEY VALUE # note" parses.
func normalizeLine(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// splitKeyValue splits a normalized line at the first whitespace run. A key
// with nothing after it is not an error, just nothing to apply; foreign
// files may contain bare directives this program does not understand.
func splitKeyValue(line string) (key, value string, ok bool) {
	i := strings.IndexFunc(line, unicode.IsSpace)
	if i < 0 {
		return "", "", false
	}
	key = line[:i]
	value = strings.TrimSpace(line[i+1:])
	if value == "" {
		return "", "", false
	}
	return key, value, true
}

// applyValue dispatches one recognized key into cfg. An unparsable value
// leaves the field at its current value; unknown keys are ignored so that
// sources shared with other tools (login.defs) parse cleanly.
func applyValue(cfg *Config, key, value, path string) {
	switch key {
	case KeyUIDMin:
		applyUint32(&cfg.UIDMin, value)
	case KeyUIDMax:
		applyUint32(&cfg.UIDMax, value)
	case cfg.SubUID.KeyMin:
		applyUint32(&cfg.SubUID.Min, value)
	case cfg.SubUID.KeyMax:
		applyUint32(&cfg.SubUID.Max, value)
	case cfg.SubUID.KeyCount:
		applyCount(&cfg.SubUID.Count, key, value, path)
	case cfg.SubGID.KeyMin:
		applyUint32(&cfg.SubGID.Min, value)
	case cfg.SubGID.KeyMax:
		applyUint32(&cfg.SubGID.Max, value)
	case cfg.SubGID.KeyCount:
		applyCount(&cfg.SubGID.Count, key, value, path)
	case KeySkipIfExists:
		cfg.SkipIfExists = validate.ParseBool(value, cfg.SkipIfExists)
	case KeyAllowSubidWrap:
		cfg.AllowSubidWrap = validate.ParseBool(value, cfg.AllowSubidWrap)
	}
}

func applyUint32(dst *uint32, value string) {
	if v, err := validate.ParseUint32(value); err == nil {
		*dst = v
	}
}

// applyCount additionally enforces the count ceiling. A count above the
// limit is rejected loudly, unlike a plain parse failure: the value was
// well-formed, somebody meant it, and it would have been accepted silently
// on a build with a higher ceiling.
func applyCount(dst *uint32, key, value, path string) {
	v, err := validate.ParseUint32(value)
	if err != nil {
		return
	}
	if v == 0 {
		logrus.Debugf("ignoring zero %s in %s", key, path)
		return
	}
	if v > constants.MaxRanges {
		logrus.Errorf("file %s %s %d exceeds defined limit of %d", path, key, v, constants.MaxRanges)
		return
	}
	*dst = v
}
