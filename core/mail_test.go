package core

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	testPerson struct{ Name string }
	testCourse struct{ Code, Name string }
	testRecord struct {
		StudentID           int
		Timestamp           time.Time
		Latitude, Longitude float64
	}
	testReport struct {
		Instructor testPerson
		Course     testCourse
		Records    []testRecord
	}
)

func TestEmailMessage_Render(t *testing.T) {
	ts := time.Date(2024, 3, 10, 9, 5, 0, 0, time.UTC)
	data := testReport{
		Instructor: testPerson{Name: "Dr <Who>"},
		Course:     testCourse{Code: "CS101", Name: "Networks"},
		Records: []testRecord{
			{StudentID: 7, Timestamp: ts, Latitude: 30.0444, Longitude: 31.2357},
		},
	}

	msg := EmailMessage{TemplateName: "attendance_report", TemplateData: data}
	require.NoError(t, msg.Render("LocateMe"))

	assert.Contains(t, msg.TextContent, "Hello Dr <Who>,")
	assert.Contains(t, msg.TextContent, "Attendance for CS101 - Networks: 1 check-in(s).")
	assert.Contains(t, msg.TextContent, "- student #7 at 2024-03-10 09:05:00 UTC (30.044400, 31.235700)")
	assert.Contains(t, msg.TextContent, "--\nLocateMe")

	assert.Contains(t, msg.HTMLContent, "Hello Dr &lt;Who&gt;,")
	assert.Contains(t, msg.HTMLContent, "<td>#7</td>")
	assert.Contains(t, msg.HTMLContent, "<title>LocateMe</title>")
	assert.True(t, msg.HasContent())
}

func TestEmailMessage_RenderBodyStr(t *testing.T) {
	msg := EmailMessage{BodyStr: "plain body"}
	require.NoError(t, msg.Render("LocateMe"))
	assert.Equal(t, "plain body", msg.TextContent)
	assert.Empty(t, msg.HTMLContent)
}

func TestEmailMessage_RenderUnknownTemplate(t *testing.T) {
	msg := EmailMessage{TemplateName: "nope"}
	err := msg.Render("LocateMe")
	assert.Equal(t, errNoTemplate, errors.Cause(err))
	assert.False(t, msg.HasContent())
}
