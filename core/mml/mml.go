// Package mml builds message markup understood by the chat platform's MML renderer.
package mml

import (
	"encoding/xml"
	"fmt"
)

// Element is one MML node.
type Element interface {
	mmlElement()
}

// Document is the <mml> root.
type Document struct {
	XMLName  xml.Name `xml:"mml"`
	Type     string   `xml:"type,attr,omitempty"`
	Elements []Element
}

// Card wraps elements in a card container.
func Card(elements ...Element) Document {
	return Document{Type: "card", Elements: elements}
}

// New returns a plain document.
func New(elements ...Element) Document {
	return Document{Elements: elements}
}

// Render serialises the document.
func (d Document) Render() (string, error) {
	data, err := xml.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("mml: render: %w", err)
	}
	return string(data), nil
}

// Text is a paragraph of plain text.
type Text struct {
	XMLName xml.Name `xml:"text"`
	Value   string   `xml:",chardata"`
}

// Input is a labelled text field submitted under Name.
type Input struct {
	XMLName     xml.Name `xml:"input"`
	Name        string   `xml:"name,attr"`
	Label       string   `xml:"label,attr,omitempty"`
	Placeholder string   `xml:"placeholder,attr,omitempty"`
}

// Button submits the form with Name=Value.
type Button struct {
	XMLName xml.Name `xml:"button"`
	Name    string   `xml:"name,attr"`
	Value   string   `xml:"value,attr"`
	Icon    string   `xml:"icon,attr,omitempty"`
	Label   string   `xml:",chardata"`
}

// Scheduler lets the user pick a time slot submitted under Name.
type Scheduler struct {
	XMLName  xml.Name `xml:"scheduler"`
	Name     string   `xml:"name,attr"`
	Duration int      `xml:"duration,attr"`
	Interval int      `xml:"interval,attr"`
	Selected string   `xml:"selected,attr,omitempty"`
}

// AddToCalendar renders a calendar invite.
type AddToCalendar struct {
	XMLName     xml.Name `xml:"add_to_calendar"`
	Title       string   `xml:"title,attr"`
	Start       string   `xml:"start,attr"`
	End         string   `xml:"end,attr"`
	Description string   `xml:"description,attr,omitempty"`
	Location    string   `xml:"location,attr,omitempty"`
}

func (Text) mmlElement()          {}
func (Input) mmlElement()         {}
func (Button) mmlElement()        {}
func (Scheduler) mmlElement()     {}
func (AddToCalendar) mmlElement() {}
