// Package i18n holds the English and German string catalogs of the character
// browser and resolves user language preferences against them.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback for missing keys and unsupported languages.
const BaseLocale = "en"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

var defaultBundle = mustLoadEmbedded()

// Default returns the process-wide embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle contains all locale catalogs.
type Bundle struct {
	locales map[string]map[string]string
	tags    []language.Tag
	matcher language.Matcher
	catalog *catalog.Builder
}

// LoadEmbedded loads the catalogs embedded in this package.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedLocales)
}

// LoadFromFS loads locales/*.yaml from fsys. Every locale must define every
// key of the base locale.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{
		locales: map[string]map[string]string{},
		catalog: catalog.NewBuilder(catalog.Fallback(language.English)),
	}

	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		if err := b.add(path, file); err != nil {
			return nil, err
		}
	}

	base, ok := b.locales[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	for locale, messages := range b.locales {
		for key := range base {
			if _, ok := messages[key]; !ok {
				return nil, fmt.Errorf("catalog %s: missing key %q", locale, key)
			}
		}
	}

	// The base locale goes first so the matcher falls back to it.
	sort.SliceStable(b.tags, func(i, j int) bool {
		return b.tags[i].String() == BaseLocale && b.tags[j].String() != BaseLocale
	})
	b.matcher = language.NewMatcher(b.tags)

	return b, nil
}

func (b *Bundle) add(path string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", path)
	}
	if _, exists := b.locales[locale]; exists {
		return fmt.Errorf("catalog %s: locale %q already defined", path, locale)
	}
	if len(file.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages map is required", path)
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale tag %q: %w", path, locale, err)
	}

	messages := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", path)
		}
		messages[trimmed] = value
		if err := b.catalog.SetString(tag, trimmed, value); err != nil {
			return fmt.Errorf("catalog %s: register %q: %w", path, trimmed, err)
		}
	}

	b.locales[locale] = messages
	b.tags = append(b.tags, tag)
	return nil
}

// Locales returns all available locale identifiers.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Message returns one message with base-locale fallback.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if messages, ok := b.locales[locale]; ok {
		if value, ok := messages[key]; ok {
			return value, true
		}
	}
	value, ok := b.locales[BaseLocale][key]
	return value, ok
}

// Match returns the supported locale closest to tag.
func (b *Bundle) Match(tag language.Tag) string {
	_, index, confidence := b.matcher.Match(tag)
	if confidence == language.No {
		return BaseLocale
	}
	return b.tags[index].String()
}

// ParseTag resolves input such as "de", "de-AT" or "en_US" to a
// supported locale. Empty input yields the base locale.
func (b *Bundle) ParseTag(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return BaseLocale, nil
	}
	tag, err := language.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", input, err)
	}
	return b.Match(tag), nil
}

// Translator returns a translator for locale, falling back to the base locale
// when it is not supported.
func (b *Bundle) Translator(locale string) *Translator {
	if _, ok := b.locales[locale]; !ok {
		locale = BaseLocale
	}
	return &Translator{
		bundle:  b,
		locale:  locale,
		printer: message.NewPrinter(language.MustParse(locale), message.Catalog(b.catalog)),
	}
}

// Next returns the locale following locale in Locales order, wrapping around.
func (b *Bundle) Next(locale string) string {
	locales := b.Locales()
	for i, l := range locales {
		if l == locale {
			return locales[(i+1)%len(locales)]
		}
	}
	return BaseLocale
}

// Translator looks up messages for one locale.
type Translator struct {
	bundle  *Bundle
	locale  string
	printer *message.Printer
}

// Locale returns the translator's locale identifier.
func (t *Translator) Locale() string {
	return t.locale
}

// T returns the message for key. Unknown keys are returned unchanged.
func (t *Translator) T(key string) string {
	if value, ok := t.bundle.Message(t.locale, key); ok {
		return value
	}
	return key
}

// Sprintf formats the message for key with args.
func (t *Translator) Sprintf(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Status returns the display name of a character status. Values the API
// adds in the future are shown as received.
func (t *Translator) Status(s character.Status) string {
	if value, ok := t.bundle.Message(t.locale, s.Key()); ok {
		return value
	}
	return string(s)
}

func mustLoadEmbedded() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return bundle
}
