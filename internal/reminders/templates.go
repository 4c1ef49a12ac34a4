package reminders

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// TemplateData is everything a reminder email may show.
type TemplateData struct {
	FirstName      string
	Date           time.Time
	TimeSlot       string
	TimeZone       string
	JoinURL        string
	RescheduleLink string
	SenderName     string
}

type Content struct {
	Subject string
	HTML    string
	Text    string
}

type templateSet struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

var funcs = map[string]any{
	"weekday": func(t time.Time) string { return t.Format("Monday") },
	"longdate": func(t time.Time) string {
		return t.Format("Monday, January 2, 2006")
	},
}

const footer = `This is an automated reminder from Wiebe Consulting's scheduling system.`

const htmlLayout = `<div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; color: #1e293b;">
{{block "body" .}}{{end}}
<hr style="border: none; border-top: 1px solid #e2e8f0; margin: 32px 0;">
<p style="font-size: 12px; color: #64748b;">` + footer + `</p>
</div>`

var sources = map[Kind]struct{ subject, html, text string }{
	Immediate: {
		subject: `You're booked: Fit Call on {{weekday .Date}}`,
		html: `<p>Hey {{.FirstName}},</p>
<p>You're all set for your <strong>Fit Call</strong>.</p>
<p><strong>When:</strong> {{longdate .Date}} at {{.TimeSlot}} {{.TimeZone}}<br>
<strong>Who:</strong> {{.SenderName}}<br>
<strong>Where:</strong> <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>
<p>If this time no longer works, you can <a href="{{.RescheduleLink}}">reschedule here</a>.</p>
<p>Talk soon,<br>{{.SenderName}}</p>`,
		text: `Hey {{.FirstName}},

You're all set for your Fit Call.

When: {{longdate .Date}} at {{.TimeSlot}} {{.TimeZone}}
Who: {{.SenderName}}
Where: {{.JoinURL}}

If this time no longer works, you can reschedule here: {{.RescheduleLink}}

Talk soon,
{{.SenderName}}
`,
	},
	ThreeDaysBefore: {
		subject: `Quick prep before our call on {{weekday .Date}}`,
		html: `<p>Hey {{.FirstName}},</p>
<p>Looking forward to our call on {{weekday .Date}} at {{.TimeSlot}} {{.TimeZone}}.</p>
<p>To make the time useful, could you reply with a ballpark of your monthly collections and how many active and past patients are in your EMR?</p>
<p>Meeting link: <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>
<p>- {{.SenderName}}</p>`,
		text: `Hey {{.FirstName}},

Looking forward to our call on {{weekday .Date}} at {{.TimeSlot}} {{.TimeZone}}.

To make the time useful, could you reply with a ballpark of your monthly collections and how many active and past patients are in your EMR?

Meeting link: {{.JoinURL}}

- {{.SenderName}}
`,
	},
	OneDayBefore: {
		subject: `Confirming our call tomorrow at {{.TimeSlot}} {{.TimeZone}}`,
		html: `<p>Hey {{.FirstName}},</p>
<p>Quick confirmation for your <strong>Fit Call</strong> tomorrow:</p>
<p><strong>When:</strong> {{longdate .Date}} at {{.TimeSlot}} {{.TimeZone}}<br>
<strong>Where:</strong> <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>
<p>If you can't make it, please <a href="{{.RescheduleLink}}">reschedule</a> so the spot opens for another clinic.</p>
<p>- {{.SenderName}}</p>`,
		text: `Hey {{.FirstName}},

Quick confirmation for your Fit Call tomorrow:

When: {{longdate .Date}} at {{.TimeSlot}} {{.TimeZone}}
Where: {{.JoinURL}}

If you can't make it, please reschedule so the spot opens for another clinic: {{.RescheduleLink}}

- {{.SenderName}}
`,
	},
	SixHoursBefore: {
		subject: `Still good for {{.TimeSlot}} {{.TimeZone}} today?`,
		html: `<p>Hey {{.FirstName}},</p>
<p>Just a reminder that your <strong>Fit Call</strong> is today at {{.TimeSlot}} {{.TimeZone}}.</p>
<p><strong>Meeting link:</strong> <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>
<p>- {{.SenderName}}</p>`,
		text: `Hey {{.FirstName}},

Just a reminder that your Fit Call is today at {{.TimeSlot}} {{.TimeZone}}.

Meeting link: {{.JoinURL}}

- {{.SenderName}}
`,
	},
	OneHourBefore: {
		subject: `Starting in 60 minutes`,
		html: `<p>Your call with {{.SenderName}} is in 60 minutes.</p>
<p><strong>Time:</strong> {{.TimeSlot}} {{.TimeZone}}<br>
<strong>Meeting link:</strong> <a href="{{.JoinURL}}">{{.JoinURL}}</a></p>`,
		text: `Your call with {{.SenderName}} is in 60 minutes.

Time: {{.TimeSlot}} {{.TimeZone}}
Meeting link: {{.JoinURL}}
`,
	},
}

var templates = mustParse()

func mustParse() map[Kind]templateSet {
	out := make(map[Kind]templateSet, len(sources))
	for kind, src := range sources {
		layout := htmltemplate.Must(htmltemplate.New(string(kind)).Funcs(funcs).Parse(htmlLayout))
		out[kind] = templateSet{
			subject: texttemplate.Must(texttemplate.New("subject").Funcs(funcs).Parse(src.subject)),
			html:    htmltemplate.Must(layout.New("body").Parse(src.html)),
			text:    texttemplate.Must(texttemplate.New("text").Funcs(funcs).Parse(src.text + "\n---\n" + footer + "\n")),
		}
	}
	return out
}

// Render produces the email for kind. It reads nothing but its arguments.
func Render(kind Kind, data TemplateData) (Content, error) {
	set, ok := templates[kind]
	if !ok {
		return Content{}, fmt.Errorf("unknown reminder kind %q", kind)
	}

	var subject, html, text bytes.Buffer
	if err := set.subject.Execute(&subject, data); err != nil {
		return Content{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := set.html.ExecuteTemplate(&html, string(kind), data); err != nil {
		return Content{}, fmt.Errorf("render %s html: %w", kind, err)
	}
	if err := set.text.Execute(&text, data); err != nil {
		return Content{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	return Content{Subject: subject.String(), HTML: html.String(), Text: text.String()}, nil
}
