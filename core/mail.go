package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/mwalimu/fs"
)

const emailTemplatesDir = "assets/templates/email"

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}

	// EmailRenderer renders templated messages from the embedded email templates.
	EmailRenderer struct {
		frontendBaseURL string
		strict          bool

		once sync.Once
		text map[string]*texttmpl.Template
		html map[string]*htmltmpl.Template
		err  error
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

func NewEmailRenderer(conf *Config) *EmailRenderer {
	return &EmailRenderer{
		frontendBaseURL: conf.FrontendBaseURL,
		strict:          conf.Debug || conf.TestMode,
	}
}

// Render fills in the message TextContent and HTMLContent.
func (r *EmailRenderer) Render(m *EmailMessage) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}

	r.once.Do(r.parseTemplates) // only parse once during first render
	if r.err != nil {
		return r.err
	}

	data := ContextData{FrontendBaseURL: r.frontendBaseURL, Data: m.TemplateData}
	var buff bytes.Buffer
	if tmpl, ok := r.text[m.TemplateName]; ok && m.BodyStr == "" {
		if err := tmpl.Execute(&buff, data); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
		m.TextContent = buff.String()
	}
	if tmpl, ok := r.html[m.TemplateName]; ok {
		buff.Reset()
		if err := tmpl.Execute(&buff, data); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (r *EmailRenderer) parseTemplates() {
	r.text = make(map[string]*texttmpl.Template)
	r.html = make(map[string]*htmltmpl.Template)

	entries, err := fs.ReadDir(appfs.FS, emailTemplatesDir)
	if err != nil {
		r.err = errors.Wrap(err, "reading email templates")
		return
	}

	for _, entry := range entries {
		fname := entry.Name()
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		fp := path.Join(emailTemplatesDir, fname)

		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.txt"), fp)
			if err != nil {
				r.err = errors.Wrapf(err, "parsing %s", fname)
				return
			}
			if r.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			r.text[name] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.gohtml"), fp)
			if err != nil {
				r.err = errors.Wrapf(err, "parsing %s", fname)
				return
			}
			if r.strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			r.html[name] = tmpl
		}
	}
}
