package storage

import (
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Location is a bucket plus a key, key prefix or key pattern.
type Location struct {
	Bucket string
	Key    string
}

// ParseLocation parses "s3://bucket/key". Anything without a scheme is read as
// "bucket/key" for the local backend.
func ParseLocation(raw string) (Location, error) {
	s := strings.TrimPrefix(raw, "s3://")
	s = strings.TrimPrefix(s, "file://")
	bucket, key, _ := strings.Cut(s, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("invalid location: %q", raw)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

// String renders the location as an s3:// URL.
func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Key
}

// Prefix returns the literal part of the key before the first wildcard.
func (l Location) Prefix() string {
	if i := strings.IndexAny(l.Key, "*?["); i >= 0 {
		return l.Key[:i]
	}
	return l.Key
}

// JoinKey joins a prefix and a key name with exactly one slash.
func JoinKey(prefix, name string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// ArchiveKey returns where a consumed object is moved: the processed prefix
// followed by the object's base name.
func ArchiveKey(processedPrefix, key string) string {
	return JoinKey(processedPrefix, path.Base(key))
}

// Glob is a compiled shell pattern with fnmatch semantics: "*" and "?" match
// any character including "/", "[...]" is a character class ("[!...]"
// negated, a leading "]" literal) and every other character is literal.
type Glob struct {
	g glob.Glob
}

// CompileGlob compiles a shell pattern. Matching runs on gobwas/glob without
// separators; the pattern is first rewritten from fnmatch syntax, which has
// no escapes or alternatives, into gobwas syntax.
func CompileGlob(pattern string) (*Glob, error) {
	translated, err := fnmatchToGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	g, err := glob.Compile(translated)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return &Glob{g: g}, nil
}

// Match reports whether name matches the pattern.
func (g *Glob) Match(name string) bool {
	return g.g.Match(name)
}

func fnmatchToGlob(pattern string) (string, error) {
	var b strings.Builder
	for i, n := 0, len(pattern); i < n; i++ {
		switch pattern[i] {
		case '*':
			b.WriteString("*")
		case '?':
			b.WriteString("?")
		case '[':
			j := i + 1
			if j < n && pattern[j] == '!' {
				j++
			}
			if j < n && pattern[j] == ']' {
				j++
			}
			for j < n && pattern[j] != ']' {
				j++
			}
			if j >= n {
				b.WriteString(`\[`)
				continue
			}
			class, err := translateClass(pattern[i+1 : j])
			if err != nil {
				return "", err
			}
			b.WriteString(class)
			i = j
		default:
			b.WriteString(glob.QuoteMeta(pattern[i : i+1]))
		}
	}
	return b.String(), nil
}

// translateClass rewrites the body of an fnmatch class. gobwas classes hold
// either one range or a list of characters, so a mixed class becomes an
// alternative of classes.
func translateClass(body string) (string, error) {
	neg := ""
	if strings.HasPrefix(body, "!") {
		neg, body = "!", body[1:]
	}

	var terms []string
	var chars []rune
	members := []rune(body)
	for k := 0; k < len(members); k++ {
		if k+2 < len(members) && members[k+1] == '-' {
			lo, hi := members[k], members[k+2]
			if lo == '!' && neg == "" {
				return "", fmt.Errorf("range starting at '!' in %q", body)
			}
			terms = append(terms, "["+neg+string(lo)+"-"+string(hi)+"]")
			k += 2
			continue
		}
		if !slices.Contains(chars, members[k]) {
			chars = append(chars, members[k])
		}
	}
	if len(chars) > 0 {
		terms = append(terms, "["+neg+classChars(chars)+"]")
	}

	switch {
	case len(terms) == 1:
		return terms[0], nil
	case neg != "":
		return "", fmt.Errorf("negated class mixing ranges %q is not supported", body)
	default:
		return "{" + strings.Join(terms, ",") + "}", nil
	}
}

// classChars lists chars for a gobwas class. A '-' goes first, where it
// cannot be read as a range.
func classChars(chars []rune) string {
	var b strings.Builder
	if slices.Contains(chars, '-') {
		b.WriteByte('-')
	}
	for _, c := range chars {
		switch c {
		case '-':
		case '\\', ']', '!':
			b.WriteByte('\\')
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// ResolveLatest picks the most recently modified object whose key matches
// pattern. Ties keep the first object listed.
func ResolveLatest(objects []ObjectInfo, pattern string) (ObjectInfo, error) {
	matcher, err := CompileGlob(pattern)
	if err != nil {
		return ObjectInfo{}, err
	}

	candidates := make([]ObjectInfo, 0, len(objects))
	for _, obj := range objects {
		if matcher.Match(obj.Key) {
			candidates = append(candidates, obj)
		}
	}
	if len(candidates) == 0 {
		return ObjectInfo{}, fmt.Errorf("%w: %s", ErrNoMatch, pattern)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].LastModified.After(candidates[j].LastModified)
	})
	return candidates[0], nil
}
