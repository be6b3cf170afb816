package emit

import (
	"sort"
	"strconv"
	"strings"
)

// Dialect renders the three textual pieces of a generated test source for
// one target language. Every method appends to buf and returns the extended
// slice.
type Dialect interface {
	// Name is the identifier used in configuration.
	Name() string

	// Extension is the file extension of generated sources, dot included.
	Extension() string

	// Defaults fills every empty field of o with the dialect's default.
	Defaults(o *Options)

	AppendPreamble(buf []byte, o *Options) []byte
	AppendUnit(buf []byte, o *Options, u Unit) []byte
	AppendDriver(buf []byte, o *Options, count, bufferSize int) []byte
}

// Unit is the data a dialect needs to render one test unit.
type Unit struct {
	Name     string
	Segments []string
	Digest   string
}

var dialects = map[string]Dialect{
	SourcePawn: sourcePawn{},
	C:          cDialect{},
}

// Segment lines wrap each message segment in these.
const (
	spSegmentOpen = `        ... "`
	cSegmentOpen  = `        "`
	segmentClose  = "\"\n"
)

// segmentOverhead is the widest wrapping any dialect puts around a segment
// on its line, excluding the newline.
const segmentOverhead = len(spSegmentOpen) + len(segmentClose) - 1

// Dialect names.
const (
	SourcePawn = "sourcepawn"
	C          = "c"
)

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

// Dialects returns the registered dialect names in sorted order.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func appendIncludes(buf []byte, includes []string) []byte {
	for _, inc := range includes {
		buf = append(buf, "#include "...)
		if strings.HasPrefix(inc, "<") || strings.HasPrefix(inc, `"`) {
			buf = append(buf, inc...)
		} else {
			buf = append(buf, '<')
			buf = append(buf, inc...)
			buf = append(buf, '>')
		}
		buf = append(buf, '\n')
	}
	return append(buf, '\n')
}

func appendCall(buf []byte, indent, name string) []byte {
	buf = append(buf, indent...)
	buf = append(buf, name...)
	return append(buf, "(output, sizeof(output));\n"...)
}

// sourcePawn reproduces the layout of the SourceMod sha256 include tests.
type sourcePawn struct{}

func (sourcePawn) Name() string      { return SourcePawn }
func (sourcePawn) Extension() string { return ".sp" }

func (sourcePawn) Defaults(o *Options) {
	setDefault(&o.HashFunction, "SHA256")
	setDefault(&o.UnitPrefix, "SHATest_")
	setDefault(&o.DriverName, "OnPluginStart")
	setDefault(&o.Encoding, "String_Hex")
	if len(o.Includes) == 0 {
		o.Includes = []string{"sourcemod", "sha256"}
	}
}

func (sourcePawn) AppendPreamble(buf []byte, o *Options) []byte {
	return appendIncludes(buf, o.Includes)
}

func (sourcePawn) AppendUnit(buf []byte, o *Options, u Unit) []byte {
	buf = append(buf, "void "...)
	buf = append(buf, u.Name...)
	buf = append(buf, "(char[] output, int size)\n{\n    "...)
	buf = append(buf, o.HashFunction...)
	buf = append(buf, "(\"\"\n"...)
	for _, seg := range u.Segments {
		buf = append(buf, spSegmentOpen...)
		buf = append(buf, seg...)
		buf = append(buf, segmentClose...)
	}
	buf = append(buf, "        ,\n        output,\n        size,\n        "...)
	buf = append(buf, o.Encoding...)
	buf = append(buf, ");\n    if (StrEqual(output, \""...)
	buf = append(buf, u.Digest...)
	buf = append(buf, "\"))\n    {\n        PrintToServer(\"PASSED: "...)
	buf = append(buf, u.Name...)
	buf = append(buf, "\");\n    }\n    else\n    {\n        PrintToServer(\"FAILED: "...)
	buf = append(buf, u.Name...)
	buf = append(buf, `\n    Expected: `...)
	buf = append(buf, u.Digest...)
	buf = append(buf, `\n    Actual: %s", output);`...)
	return append(buf, "\n    }\n}\n"...)
}

func (sourcePawn) AppendDriver(buf []byte, o *Options, count, bufferSize int) []byte {
	buf = append(buf, "public void "...)
	buf = append(buf, o.DriverName...)
	buf = append(buf, "()\n{\n    char output["...)
	buf = strconv.AppendInt(buf, int64(bufferSize), 10)
	buf = append(buf, "];\n"...)
	for i := 0; i < count; i++ {
		buf = appendCall(buf, "    ", o.unitName(i))
	}
	return append(buf, "}\n"...)
}

// cDialect targets ANSI C, joining segments by adjacent literal
// concatenation. The hash routine is called as fn(msg, output, size).
type cDialect struct{}

func (cDialect) Name() string      { return C }
func (cDialect) Extension() string { return ".c" }

func (cDialect) Defaults(o *Options) {
	setDefault(&o.HashFunction, "sha256_hex")
	setDefault(&o.UnitPrefix, "sha_test_")
	setDefault(&o.DriverName, "main")
	if len(o.Includes) == 0 {
		o.Includes = []string{"stdio.h", "string.h", `"sha256.h"`}
	}
}

func (cDialect) AppendPreamble(buf []byte, o *Options) []byte {
	return appendIncludes(buf, o.Includes)
}

func (cDialect) AppendUnit(buf []byte, o *Options, u Unit) []byte {
	buf = append(buf, "static void "...)
	buf = append(buf, u.Name...)
	buf = append(buf, "(char *output, size_t size)\n{\n    "...)
	buf = append(buf, o.HashFunction...)
	buf = append(buf, "(\"\"\n"...)
	for _, seg := range u.Segments {
		buf = append(buf, cSegmentOpen...)
		buf = append(buf, seg...)
		buf = append(buf, segmentClose...)
	}
	buf = append(buf, "        , output, size);\n    if (strcmp(output, \""...)
	buf = append(buf, u.Digest...)
	buf = append(buf, "\") == 0)\n    {\n        printf(\"PASSED: "...)
	buf = append(buf, u.Name...)
	buf = append(buf, "\\n\");\n    }\n    else\n    {\n        printf(\"FAILED: "...)
	buf = append(buf, u.Name...)
	buf = append(buf, `\n    Expected: `...)
	buf = append(buf, u.Digest...)
	buf = append(buf, `\n    Actual: %s\n", output);`...)
	return append(buf, "\n    }\n}\n"...)
}

func (cDialect) AppendDriver(buf []byte, o *Options, count, bufferSize int) []byte {
	buf = append(buf, "int "...)
	buf = append(buf, o.DriverName...)
	buf = append(buf, "(void)\n{\n    char output["...)
	buf = strconv.AppendInt(buf, int64(bufferSize), 10)
	buf = append(buf, "];\n"...)
	for i := 0; i < count; i++ {
		buf = appendCall(buf, "    ", o.unitName(i))
	}
	return append(buf, "    return 0;\n}\n"...)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
