package mailer

import (
	"bytes"
	"fmt"
	"text/template"
)

var assignmentTemplate = template.Must(template.New("assignment").Parse(`Dear {{.OfficerName}},

A new field visit has been assigned to you by {{.DMName}}.

Visit date : {{.VisitDate}}
District   : {{.District}}
Priority   : {{.Priority}}
{{if .Notes}}Notes      : {{.Notes}}
{{end}}
Please log in to the SJD portal to accept the assignment.

SJD Grievance Portal`))

var forwardTemplate = template.Must(template.New("forward").Parse(`A complaint has been forwarded to you for action.

Tracking ID : {{.TrackingID}}
Subject     : {{.Title}}
{{if .Remarks}}Remarks     : {{.Remarks}}
{{end}}
Please log in to the SJD portal to review it.

SJD Grievance Portal`))

var welcomeTemplate = template.Must(template.New("welcome").Parse(`Dear {{.Name}},

Your SJD portal account has been created.

Unique ID : {{.UniqueCode}}
Role      : {{.Role}}

SJD Grievance Portal`))

// AssignmentMailData fills the field-visit assignment mail.
type AssignmentMailData struct {
	OfficerName string
	DMName      string
	VisitDate   string
	District    string
	Priority    string
	Notes       string
}

// ForwardMailData fills the complaint-forwarded mail.
type ForwardMailData struct {
	TrackingID string
	Title      string
	Remarks    string
}

// WelcomeMailData fills the account-created mail.
type WelcomeMailData struct {
	Name       string
	UniqueCode string
	Role       string
}

// RenderAssignment returns the assignment notification body.
func RenderAssignment(data AssignmentMailData) (string, error) {
	return render(assignmentTemplate, data)
}

// RenderForward returns the complaint-forwarded mail body.
func RenderForward(data ForwardMailData) (string, error) {
	return render(forwardTemplate, data)
}

// RenderWelcome returns the welcome mail body.
func RenderWelcome(data WelcomeMailData) (string, error) {
	return render(welcomeTemplate, data)
}

func render(tpl *template.Template, data interface{}) (string, error) {
	buf := &bytes.Buffer{}
	if err := tpl.Execute(buf, data); err != nil {
		return "", fmt.Errorf("render mail template %s: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}
