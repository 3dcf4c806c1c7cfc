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
	"bytes"
	"io/fs"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/containertools/static-subid/pkg/fakes"
	"github.com/containertools/static-subid/pkg/system"
	"github.com/containertools/static-subid/pkg/validate"
	"github.com/containertools/static-subid/testutil"
)

var testSources = Sources{
	LoginDefs:  "/etc/login.defs",
	ConfigFile: "/etc/static-subid.conf",
	DropInDir:  "/etc/static-subid.conf.d",
}

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader(&fakes.System{})
	cfg, err := loader.Load(testSources)
	testutil.CheckErrorAndDeepEqual(t, false, err, Default(), cfg)
}

func TestLoadLayering(t *testing.T) {
	sys := &fakes.System{
		Files: map[string]fakes.File{
			"/etc/login.defs":                      fakes.RootFile("UID_MIN 100\nSUB_GID_COUNT 4096\n"),
			"/etc/static-subid.conf":               fakes.RootFile("UID_MIN 2000\n"),
			"/etc/static-subid.conf.d/50-site.conf": fakes.RootFile("UID_MAX 50000\n"),
		},
		Dirs: map[string]fakes.Dir{
			"/etc/static-subid.conf.d": fakes.RootDir("50-site.conf"),
		},
	}
	cfg, err := NewLoader(sys).Load(testSources)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	expected := Default()
	expected.UIDMin = 2000
	expected.UIDMax = 50000
	expected.SubGID.Count = 4096
	testutil.CheckDeepEqual(t, expected, cfg)
}

func TestLoadDropInOrder(t *testing.T) {
	// Directory listings come back sorted; a later fragment wins.
	sys := &fakes.System{
		Files: map[string]fakes.File{
			"/etc/static-subid.conf.d/10-a.conf": fakes.RootFile("UID_MIN 1500\nUID_MAX 40000\n"),
			"/etc/static-subid.conf.d/20-b.conf": fakes.RootFile("UID_MIN 3000\n"),
		},
		Dirs: map[string]fakes.Dir{
			"/etc/static-subid.conf.d": fakes.RootDir("20-b.conf", "10-a.conf"),
		},
	}
	cfg, err := NewLoader(sys).Load(testSources)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	expected := Default()
	expected.UIDMin = 3000
	expected.UIDMax = 40000
	testutil.CheckDeepEqual(t, expected, cfg)
}

func TestLoadSkipsInsecureFile(t *testing.T) {
	sys := &fakes.System{
		Files: map[string]fakes.File{
			"/etc/static-subid.conf": {
				Content: "UID_MIN 1\n",
				Desc:    system.Description{OwnerUID: 1000, Mode: 0o644},
			},
		},
	}
	cfg, err := NewLoader(sys).Load(testSources)
	testutil.CheckErrorAndDeepEqual(t, false, err, Default(), cfg)
}

func TestLoadInsecureDropInDirFatal(t *testing.T) {
	sys := &fakes.System{
		Dirs: map[string]fakes.Dir{
			"/etc/static-subid.conf.d": {
				Desc:  system.Description{OwnerUID: 0, Mode: fs.ModeDir | 0o757},
				Names: []string{"50-site.conf"},
			},
		},
	}
	_, err := NewLoader(sys).Load(testSources)
	testutil.CheckError(t, true, err)
}

func TestLoadDropInScanErrorFatal(t *testing.T) {
	sys := &fakes.System{
		Dirs: map[string]fakes.Dir{
			"/etc/static-subid.conf.d": {
				Desc:    system.Description{OwnerUID: 0, Mode: fs.ModeDir | 0o755},
				ReadErr: errors.New("io error"),
			},
		},
	}
	_, err := NewLoader(sys).Load(testSources)
	testutil.CheckError(t, true, err)
}

func TestLoadDropInNameFiltering(t *testing.T) {
	sys := &fakes.System{
		Files: map[string]fakes.File{
			"/etc/static-subid.conf.d/50-site.conf": fakes.RootFile("UID_MIN 2000\n"),
		},
		Dirs: map[string]fakes.Dir{
			"/etc/static-subid.conf.d": fakes.RootDir(
				"50-site.conf",
				".hidden.conf",
				"notes.txt",
				".conf",
				"..evil.conf",
				"sub/dir.conf",
				strings.Repeat("a", validate.MaxPathLen)+".conf",
			),
		},
	}
	cfg, err := NewLoader(sys).Load(testSources)
	if err != nil {
		t.Fatalf("Unexpected error: %s", err)
	}
	expectedOpens := []string{
		"/etc/login.defs",
		"/etc/static-subid.conf",
		"/etc/static-subid.conf.d/50-site.conf",
	}
	testutil.CheckDeepEqual(t, expectedOpens, sys.Opened)
	testutil.CheckDeepEqual(t, uint32(2000), cfg.UIDMin)
}

var parseTests = []struct {
	name     string
	content  string
	expected func(*Config)
}{
	{
		name:     "comments and blanks",
		content:  "# header\n\n   \nUID_MIN 2000 # inline\n",
		expected: func(c *Config) { c.UIDMin = 2000 },
	},
	{
		name:     "tab separated",
		content:  "UID_MIN\t\t2000\n",
		expected: func(c *Config) { c.UIDMin = 2000 },
	},
	{
		name:     "bare key ignored",
		content:  "UID_MIN\nUID_MAX 50000\n",
		expected: func(c *Config) { c.UIDMax = 50000 },
	},
	{
		name:     "unknown key ignored",
		content:  "PASS_MAX_DAYS 99999\nENCRYPT_METHOD SHA512\n",
		expected: func(c *Config) {},
	},
	{
		name:     "unparsable value keeps prior",
		content:  "UID_MIN abc\nUID_MAX -5\n",
		expected: func(c *Config) {},
	},
	{
		name:    "all keys",
		content: "SUB_UID_MIN 200000\nSUB_UID_MAX 300000\nSUB_UID_COUNT 1000\nSUB_GID_MIN 400000\nSUB_GID_MAX 500000\nSUB_GID_COUNT 2000\nSKIP_IF_EXISTS no\nALLOW_SUBID_WRAP yes\n",
		expected: func(c *Config) {
			c.SubUID.Min = 200000
			c.SubUID.Max = 300000
			c.SubUID.Count = 1000
			c.SubGID.Min = 400000
			c.SubGID.Max = 500000
			c.SubGID.Count = 2000
			c.SkipIfExists = false
			c.AllowSubidWrap = true
		},
	},
	{
		name:     "zero count keeps prior",
		content:  "SUB_UID_COUNT 0\n",
		expected: func(c *Config) {},
	},
	{
		name:     "count over ceiling keeps prior",
		content:  "SUB_UID_COUNT 67108865\n",
		expected: func(c *Config) {},
	},
	{
		name:     "count at ceiling accepted",
		content:  "SUB_UID_COUNT 67108864\n",
		expected: func(c *Config) { c.SubUID.Count = 67108864 },
	},
	{
		name:     "bool falls back to prior on junk",
		content:  "SKIP_IF_EXISTS maybe\n",
		expected: func(c *Config) {},
	},
}

func TestParseFile(t *testing.T) {
	for _, test := range parseTests {
		t.Run(test.name, func(t *testing.T) {
			sys := &fakes.System{Files: map[string]fakes.File{
				"/etc/static-subid.conf": fakes.RootFile(test.content),
			}}
			cfg, err := NewLoader(sys).Load(testSources)
			if err != nil {
				t.Fatalf("Unexpected error: %s", err)
			}
			expected := Default()
			test.expected(expected)
			testutil.CheckDeepEqual(t, expected, cfg)
		})
	}
}

func TestCheckOverlap(t *testing.T) {
	s := SubidConfig{Min: 100000, Max: 600100000}
	testutil.CheckError(t, false, s.CheckOverlap(99999))
	testutil.CheckError(t, true, s.CheckOverlap(100000))
	testutil.CheckError(t, true, s.CheckOverlap(600100000))
	testutil.CheckError(t, false, s.CheckOverlap(600100001))
}

func TestValidateUID(t *testing.T) {
	cfg := Default()
	testutil.CheckError(t, true, cfg.ValidateUID(999))
	testutil.CheckError(t, false, cfg.ValidateUID(1000))
	testutil.CheckError(t, false, cfg.ValidateUID(60000))
	testutil.CheckError(t, true, cfg.ValidateUID(60001))
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	Default().Dump(&buf, "  ")
	expected := "  UID_MIN\t\t1000\n" +
		"  UID_MAX\t\t60000\n" +
		"  SUB_UID_MIN\t\t100000\n" +
		"  SUB_UID_MAX\t\t600100000\n" +
		"  SUB_UID_COUNT\t65536\n" +
		"  SUB_GID_MIN\t\t100000\n" +
		"  SUB_GID_MAX\t\t600100000\n" +
		"  SUB_GID_COUNT\t65536\n" +
		"  SKIP_IF_EXISTS\tyes\n" +
		"  ALLOW_SUBID_WRAP\tno\n"
	testutil.CheckDeepEqual(t, expected, buf.String())
}
