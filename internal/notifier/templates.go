package notifier

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/good-yellow-bee/crowdwatch/internal/models"
)

const plainTemplate = `CrowdWatch Alert: {{.EventName}}

Type:      {{upper .AlertType}}
Status:    {{.Status}}
Headcount: {{.Headcount}}
Capacity:  {{.CrowdedThreshold}} (safe below {{.SafeThreshold}})
Time:      {{.Timestamp}}

{{.Message}}
`

const htmlTemplate = `<html>
<body style="font-family: sans-serif;">
<h2 style="color: {{.TypeColor}};">CrowdWatch Alert: {{.EventName}}</h2>
<table cellpadding="4">
<tr><td><b>Type</b></td><td>{{upper .AlertType}}</td></tr>
<tr><td><b>Status</b></td><td>{{.Status}}</td></tr>
<tr><td><b>Headcount</b></td><td>{{.Headcount}}</td></tr>
<tr><td><b>Capacity</b></td><td>{{.CrowdedThreshold}} (safe below {{.SafeThreshold}})</td></tr>
<tr><td><b>Time</b></td><td>{{.Timestamp}}</td></tr>
</table>
<p>{{.Message}}</p>
</body>
</html>
`

// Templates holds parsed notification message templates.
type Templates struct {
	html  *template.Template
	plain *template.Template
}

// TemplateData contains data for template rendering.
type TemplateData struct {
	EventName        string
	AlertType        string
	TypeColor        string
	Message          string
	Status           string
	Headcount        int
	SafeThreshold    int
	CrowdedThreshold int
	Timestamp        string
}

// LoadTemplates parses the notification templates.
func LoadTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
	}

	htmlTmpl, err := template.New("alert.html").Funcs(funcs).Parse(htmlTemplate)
	if err != nil {
		return nil, err
	}

	plainTmpl, err := template.New("alert.txt").Funcs(funcs).Parse(plainTemplate)
	if err != nil {
		return nil, err
	}

	return &Templates{
		html:  htmlTmpl,
		plain: plainTmpl,
	}, nil
}

// RenderHTML renders the HTML message body.
func (t *Templates) RenderHTML(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.html.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPlain renders the plain text message body.
func (t *Templates) RenderPlain(data *TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := t.plain.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// typeColor returns the accent color for an alert type.
func typeColor(t models.AlertType) string {
	switch t {
	case models.AlertCapacity:
		return "#d32f2f" // red
	case models.AlertSpike:
		return "#f57c00" // orange
	case models.AlertStale:
		return "#fbc02d" // yellow
	default:
		return "#757575" // gray
	}
}

// ToTemplateData flattens a notification for template rendering.
func ToTemplateData(n *Notification) TemplateData {
	return TemplateData{
		EventName:        n.Event.Name,
		AlertType:        string(n.Alert.Type),
		TypeColor:        typeColor(n.Alert.Type),
		Message:          n.Alert.Message,
		Status:           string(n.Status),
		Headcount:        n.Headcount,
		SafeThreshold:    n.Event.SafeThreshold,
		CrowdedThreshold: n.Event.CrowdedThreshold,
		Timestamp:        n.Alert.CreatedAt.Format("2006-01-02 15:04:05 MST"),
	}
}
