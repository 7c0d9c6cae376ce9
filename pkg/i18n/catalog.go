// Package i18n resolves the user-facing strings of the client from embedded
// YAML catalogs.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// Translator is what components need from a catalog.
type Translator interface {
	T(key string) string
}

// Catalog holds the flattened strings of one locale plus the English
// fallback.
type Catalog struct {
	tag      language.Tag
	strings  map[string]string
	fallback map[string]string
}

var _ Translator = &Catalog{}

var fallbackTag = language.English

// New returns the catalog that best matches locale. An empty locale falls
// back to $LANG, then to English.
func New(locale string) (*Catalog, error) {
	all, err := loadAll()
	if err != nil {
		return nil, err
	}

	if locale == "" {
		locale = localeFromEnv()
	}

	tags := make([]language.Tag, 0, len(all))
	tags = append(tags, fallbackTag)
	for tag := range all {
		if tag != fallbackTag {
			tags = append(tags, tag)
		}
	}
	sort.SliceStable(tags[1:], func(i, j int) bool {
		return tags[1+i].String() < tags[1+j].String()
	})

	tag := fallbackTag
	if locale != "" {
		desired, _, err := language.ParseAcceptLanguage(locale)
		if err != nil {
			log.Debug().Err(err).Str("locale", locale).Msg("unparseable locale, using english")
		} else {
			_, idx, _ := language.NewMatcher(tags).Match(desired...)
			tag = tags[idx]
		}
	}

	return &Catalog{
		tag:      tag,
		strings:  all[tag],
		fallback: all[fallbackTag],
	}, nil
}

// MustNew is New for callers that only use the embedded catalogs, which
// are known to parse.
func MustNew(locale string) *Catalog {
	c, err := New(locale)
	if err != nil {
		panic(err)
	}
	return c
}

// Tag returns the selected locale.
func (c *Catalog) Tag() language.Tag {
	return c.tag
}

// T looks up key, falling back to English and then to the key itself.
func (c *Catalog) T(key string) string {
	if c == nil {
		return key
	}
	if s, ok := c.strings[key]; ok {
		return s
	}
	if s, ok := c.fallback[key]; ok {
		return s
	}
	return key
}

func loadAll() (map[language.Tag]map[string]string, error) {
	entries, err := localesFS.ReadDir("locales")
	if err != nil {
		return nil, errors.Wrap(err, "i18n: read embedded locales")
	}
	out := map[language.Tag]map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".yaml" {
			continue
		}
		tag, err := language.Parse(strings.TrimSuffix(name, ".yaml"))
		if err != nil {
			return nil, errors.Wrapf(err, "i18n: locale file %s", name)
		}
		b, err := localesFS.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, errors.Wrapf(err, "i18n: read %s", name)
		}
		var tree map[string]any
		if err := yaml.Unmarshal(b, &tree); err != nil {
			return nil, errors.Wrapf(err, "i18n: parse %s", name)
		}
		flat := map[string]string{}
		flatten("", tree, flat)
		out[tag] = flat
	}
	if _, ok := out[fallbackTag]; !ok {
		return nil, errors.New("i18n: english catalog missing")
	}
	return out, nil
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch vv := v.(type) {
		case map[string]any:
			flatten(key, vv, out)
		case string:
			out[key] = vv
		default:
			out[key] = fmt.Sprint(vv)
		}
	}
}

// localeFromEnv turns POSIX locale values like el_GR.UTF-8 into BCP 47.
func localeFromEnv() string {
	for _, k := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(k)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return ""
}
