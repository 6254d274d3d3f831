package core

import (
	"bytes"
	"net/mail"
	"os"
	"path/filepath"
	"sync"

	htmltmpl "html/template"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

var (
	textTemplates *texttmpl.Template
	htmlTemplates *htmltmpl.Template
	tmplInit      sync.Once
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

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

	// EmailService is any service that can send emails.
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func loadTemplates() {
	dir := filepath.Join("templates", "email")
	if _, err := os.Stat(dir); err != nil {
		return
	}
	textTemplates = texttmpl.Must(texttmpl.ParseGlob(filepath.Join(dir, "*.txt")))
	htmlTemplates = htmltmpl.Must(htmltmpl.ParseGlob(filepath.Join(dir, "*.html")))
}

// Render resolves the message's text and HTML contents;
// either from its template (when TemplateName is set) or from BodyStr.
func (msg *EmailMessage) Render() error {
	if msg.TemplateName == "" {
		msg.TextContent = msg.BodyStr
		return nil
	}

	tmplInit.Do(loadTemplates)
	data := ContextData{FrontendBaseURL: Conf.FrontendBaseURL, Data: msg.TemplateData}

	if textTemplates != nil {
		var buf bytes.Buffer
		if err := textTemplates.ExecuteTemplate(&buf, msg.TemplateName+".txt", data); err != nil {
			return errors.Wrap(err, "executing text template")
		}
		msg.TextContent = buf.String()
	}
	if htmlTemplates != nil {
		var buf bytes.Buffer
		if err := htmlTemplates.ExecuteTemplate(&buf, msg.TemplateName+".html", data); err != nil {
			return errors.Wrap(err, "executing html template")
		}
		msg.HTMLContent = buf.String()
	}
	return nil
}

func (msg *EmailMessage) HasRecipients() bool {
	return len(msg.To) > 0 || len(msg.Cc) > 0 || len(msg.Bcc) > 0
}

func (msg *EmailMessage) HasContent() bool {
	return msg.TextContent != "" || msg.HTMLContent != ""
}

func (msg *EmailMessage) HasAttachments() bool {
	return len(msg.Attachments) > 0
}
