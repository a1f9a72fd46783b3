// Package xpdl converts projects to and from the XPDL-style package
// document flowedit persists. Identifiers are written verbatim so that
// decoding an encoded project yields the same ids, fields and derived
// join/split classifications.
package xpdl

import (
	"encoding/xml"

	"github.com/rendis/flowedit/pkg/schema"
)

const (
	Version = "2.1"
	Vendor  = "flowedit"
)

// Gate types of a TransitionRestriction. XOR and AND both mean "many" and
// also carry the gate mode.
const (
	gateNone = "None"
	gateOne  = "One"
	gateXOR  = "XOR"
	gateAND  = "AND"
)

type xmlPackage struct {
	XMLName   xml.Name     `xml:"Package"`
	ID        string       `xml:"Id,attr"`
	Name      string       `xml:"Name,attr,omitempty"`
	Header    xmlHeader    `xml:"PackageHeader"`
	Processes []xmlProcess `xml:"WorkflowProcesses>WorkflowProcess"`
}

type xmlHeader struct {
	XPDLVersion string `xml:"XPDLVersion"`
	Vendor      string `xml:"Vendor"`
}

type xmlProcess struct {
	ID           string           `xml:"Id,attr"`
	Name         string           `xml:"Name,attr,omitempty"`
	Key          int              `xml:"Key,attr"`
	Participants []xmlParticipant `xml:"Participants>Participant"`
	Applications []xmlApplication `xml:"Applications>Application"`
	Activities   []xmlActivity    `xml:"Activities>Activity"`
	Transitions  []xmlTransition  `xml:"Transitions>Transition"`
}

type xmlParticipant struct {
	ID   string `xml:"Id,attr"`
	Key  int    `xml:"Key,attr"`
	Name string `xml:"Name,attr,omitempty"`
}

type xmlApplication struct {
	ID          string `xml:"Id,attr"`
	Name        string `xml:"Name,attr,omitempty"`
	Description string `xml:"Description,omitempty"`
}

type xmlActivity struct {
	Key          int             `xml:"Key,attr"`
	Kind         string          `xml:"Kind,attr"`
	ID           string          `xml:"Id,attr,omitempty"`
	Name         string          `xml:"Name,attr,omitempty"`
	Type         string          `xml:"Type,attr,omitempty"`
	Performer    string          `xml:"Performer,attr,omitempty"`
	Graphics     xmlGraphics     `xml:"NodeGraphicsInfo"`
	Restrictions *xmlRestriction `xml:"TransitionRestrictions>TransitionRestriction"`
	Tools        []xmlTool       `xml:"Tools>Tool"`
	Timer        *xmlTimer       `xml:"Timer"`
	Comment      *string         `xml:"Comment"`
}

type xmlGraphics struct {
	X      float64 `xml:"X,attr"`
	Y      float64 `xml:"Y,attr"`
	Width  float64 `xml:"Width,attr"`
	Height float64 `xml:"Height,attr"`
}

type xmlRestriction struct {
	Join  xmlGate `xml:"Join"`
	Split xmlGate `xml:"Split"`
}

// xmlGate records the gate mode separately so it survives while the
// multiplicity is none or one.
type xmlGate struct {
	Type string `xml:"Type,attr"`
	Mode string `xml:"Mode,attr,omitempty"`
}

type xmlTool struct {
	ID         string `xml:"Id,attr"`
	Expression string `xml:"Expression"`
}

type xmlTimer struct {
	Expression string `xml:"Expression"`
}

type xmlTransition struct {
	Key       int    `xml:"Key,attr"`
	Kind      string `xml:"Kind,attr"`
	ID        string `xml:"Id,attr,omitempty"`
	From      int    `xml:"From,attr"`
	To        int    `xml:"To,attr"`
	Condition string `xml:"Condition,omitempty"`
}

func gateType(m schema.Multiplicity, mode schema.GateMode) string {
	switch m {
	case schema.MultiplicityOne:
		return gateOne
	case schema.MultiplicityMany:
		if mode == schema.GateAND {
			return gateAND
		}
		return gateXOR
	}
	return gateNone
}

// parseGate returns the gate mode of g and whether its type is known.
// The Type attribute wins over Mode for XOR and AND.
func parseGate(g xmlGate) (schema.GateMode, bool) {
	switch g.Type {
	case gateXOR:
		return schema.GateXOR, true
	case gateAND:
		return schema.GateAND, true
	case gateNone, gateOne, "":
		mode := schema.GateMode(g.Mode)
		if mode == "" {
			return schema.GateXOR, true
		}
		return mode, mode.Valid()
	}
	return "", false
}
