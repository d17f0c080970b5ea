package i18n

import (
	"embed"
	"io/fs"
	"path"

	"github.com/chai2010/gettext-go"
)

//go:embed translations
var Translations embed.FS

const (
	Domain          = "sysmon"
	DefaultLanguage = "en_US"

	translationsDir = "translations"
)

var Languages = map[string]string{
	"en_US": "English",
	"it_IT": "Italiano",
}

// Localizer translates notification texts. Unknown message ids and unknown
// languages fall back to the English id.
type Localizer struct {
	intl gettext.Gettexter
	lang string
}

func NewLocalizer(lang string) *Localizer {
	if _, ok := Languages[lang]; !ok {
		lang = DefaultLanguage
	}
	intl := gettext.New(Domain, translationsDir, catalogueFS{root: translationsDir, fsys: Translations})
	intl.SetLanguage(lang)
	return &Localizer{intl: intl, lang: lang}
}

func (l *Localizer) Language() string {
	return l.lang
}

func (l *Localizer) T(msgid string) string {
	if l.lang == DefaultLanguage {
		return msgid
	}
	return l.intl.Gettext(msgid)
}

// catalogueFS serves <root>/<lang>/LC_MESSAGES/<domain><ext> out of fsys.
type catalogueFS struct {
	root string
	fsys fs.FS
}

var _ gettext.FileSystem = catalogueFS{}

func (c catalogueFS) LocaleList() []string {
	entries, err := fs.ReadDir(c.fsys, c.root)
	if err != nil {
		return nil
	}
	var locales []string
	for _, e := range entries {
		if e.IsDir() {
			locales = append(locales, e.Name())
		}
	}
	return locales
}

func (c catalogueFS) LoadMessagesFile(domain, lang, ext string) ([]byte, error) {
	return fs.ReadFile(c.fsys, path.Join(c.root, lang, "LC_MESSAGES", domain+ext))
}

func (c catalogueFS) LoadResourceFile(domain, lang, name string) ([]byte, error) {
	return fs.ReadFile(c.fsys, path.Join(c.root, lang, domain, name))
}

func (c catalogueFS) String() string {
	return "embed:" + c.root
}
