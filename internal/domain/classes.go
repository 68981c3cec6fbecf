package domain

import "sort"

type SystemClass string

const (
	ClassAcquisition        SystemClass = "acquisition"
	ClassActivity           SystemClass = "activity"
	ClassAdministrativeUnit SystemClass = "administrative_unit"
	ClassAppellation        SystemClass = "appellation"
	ClassArtifact           SystemClass = "artifact"
	ClassBibliography       SystemClass = "bibliography"
	ClassEdition            SystemClass = "edition"
	ClassExternalReference  SystemClass = "external_reference"
	ClassFeature            SystemClass = "feature"
	ClassFile               SystemClass = "file"
	ClassGroup              SystemClass = "group"
	ClassHumanRemains       SystemClass = "human_remains"
	ClassModification       SystemClass = "modification"
	ClassMove               SystemClass = "move"
	ClassObjectLocation     SystemClass = "object_location"
	ClassPerson             SystemClass = "person"
	ClassPlace              SystemClass = "place"
	ClassProduction         SystemClass = "production"
	ClassReferenceSystem    SystemClass = "reference_system"
	ClassSource             SystemClass = "source"
	ClassSourceTranslation  SystemClass = "source_translation"
	ClassStratigraphicUnit  SystemClass = "stratigraphic_unit"
	ClassType               SystemClass = "type"
)

const (
	ViewActor           = "actor"
	ViewArtifact        = "artifact"
	ViewEvent           = "event"
	ViewFile            = "file"
	ViewPlace           = "place"
	ViewReference       = "reference"
	ViewReferenceSystem = "reference_system"
	ViewSource          = "source"
	ViewType            = "type"
)

// ClassInfo describes what a system class maps to and which links a save
// of that class owns.
type ClassInfo struct {
	Name                SystemClass
	CidocCode           string
	View                string
	Label               string
	HasLocation         bool
	ManagedLinks        []string
	ManagedInverseLinks []string
}

var (
	actorLinks = []string{"P74", "OA8", "OA9"}
	eventLinks = []string{"P7", "P24", "P25", "P26", "P27", "P108", "P117"}
)

var classes = map[SystemClass]ClassInfo{
	ClassAcquisition:        {CidocCode: "E8", View: ViewEvent, Label: "Acquisition", ManagedLinks: eventLinks},
	ClassActivity:           {CidocCode: "E7", View: ViewEvent, Label: "Activity", ManagedLinks: eventLinks},
	ClassAdministrativeUnit: {CidocCode: "E53", View: ViewType, Label: "Administrative unit"},
	ClassAppellation:        {CidocCode: "E41", Label: "Appellation"},
	ClassArtifact:           {CidocCode: "E22", View: ViewArtifact, Label: "Artifact", HasLocation: true, ManagedLinks: []string{"P52"}},
	ClassBibliography:       {CidocCode: "E31", View: ViewReference, Label: "Bibliography"},
	ClassEdition:            {CidocCode: "E31", View: ViewReference, Label: "Edition"},
	ClassExternalReference:  {CidocCode: "E31", View: ViewReference, Label: "External reference"},
	ClassFeature:            {CidocCode: "E18", View: ViewPlace, Label: "Feature", HasLocation: true},
	ClassFile:               {CidocCode: "E31", View: ViewFile, Label: "File"},
	ClassGroup:              {CidocCode: "E74", View: ViewActor, Label: "Group", ManagedLinks: actorLinks},
	ClassHumanRemains:       {CidocCode: "E20", View: ViewArtifact, Label: "Human remains", HasLocation: true, ManagedLinks: []string{"P52"}},
	ClassModification:       {CidocCode: "E11", View: ViewEvent, Label: "Modification", ManagedLinks: eventLinks},
	ClassMove:               {CidocCode: "E9", View: ViewEvent, Label: "Move", ManagedLinks: eventLinks},
	ClassObjectLocation:     {CidocCode: "E53", Label: "Object location"},
	ClassPerson:             {CidocCode: "E21", View: ViewActor, Label: "Person", ManagedLinks: actorLinks},
	ClassPlace:              {CidocCode: "E18", View: ViewPlace, Label: "Place", HasLocation: true},
	ClassProduction:         {CidocCode: "E12", View: ViewEvent, Label: "Production", ManagedLinks: eventLinks},
	ClassReferenceSystem:    {CidocCode: "E32", View: ViewReferenceSystem, Label: "Reference system"},
	ClassSource:             {CidocCode: "E33", View: ViewSource, Label: "Source", ManagedInverseLinks: []string{"P128"}},
	ClassSourceTranslation:  {CidocCode: "E33", Label: "Source translation"},
	ClassStratigraphicUnit:  {CidocCode: "E18", View: ViewPlace, Label: "Stratigraphic unit", HasLocation: true},
	ClassType:               {CidocCode: "E55", View: ViewType, Label: "Type"},
}

var cidocClassNames = map[string]string{
	"E7":  "Activity",
	"E8":  "Acquisition",
	"E9":  "Move",
	"E11": "Modification",
	"E12": "Production",
	"E18": "Physical Thing",
	"E20": "Biological Object",
	"E21": "Person",
	"E22": "Human-Made Object",
	"E31": "Document",
	"E32": "Authority Document",
	"E33": "Linguistic Object",
	"E41": "Appellation",
	"E53": "Place",
	"E55": "Type",
	"E74": "Group",
}

// Info returns the class description; unknown classes get a zero ClassInfo
// carrying only the name.
func (c SystemClass) Info() ClassInfo {
	info, ok := classes[c]
	if !ok {
		return ClassInfo{Name: c}
	}
	info.Name = c
	return info
}

func (c SystemClass) Valid() bool {
	_, ok := classes[c]
	return ok
}

// IsType reports whether entities of this class are nodes of the type forest.
func (c SystemClass) IsType() bool {
	return c == ClassType || c == ClassAdministrativeUnit
}

func CidocClassName(code string) string {
	return cidocClassNames[code]
}

func Classes() []ClassInfo {
	out := make([]ClassInfo, 0, len(classes))
	for name := range classes {
		out = append(out, name.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func ClassesOfView(view string) []SystemClass {
	out := make([]SystemClass, 0)
	for _, info := range Classes() {
		if info.View == view {
			out = append(out, info.Name)
		}
	}
	return out
}

type Property struct {
	Code        string
	Name        string
	InverseName string
}

var properties = map[string]Property{
	"P1":   {Name: "is identified by", InverseName: "identifies"},
	"P2":   {Name: "has type", InverseName: "is type of"},
	"P7":   {Name: "took place at", InverseName: "witnessed"},
	"P9":   {Name: "consists of", InverseName: "forms part of"},
	"P11":  {Name: "had participant", InverseName: "participated in"},
	"P14":  {Name: "carried out by", InverseName: "performed"},
	"P22":  {Name: "transferred title to", InverseName: "acquired title through"},
	"P23":  {Name: "transferred title from", InverseName: "surrendered title through"},
	"P24":  {Name: "transferred title of", InverseName: "changed ownership through"},
	"P25":  {Name: "moved", InverseName: "moved by"},
	"P26":  {Name: "moved to", InverseName: "was destination of"},
	"P27":  {Name: "moved from", InverseName: "was origin of"},
	"P31":  {Name: "has modified", InverseName: "was modified by"},
	"P46":  {Name: "is composed of", InverseName: "forms part of"},
	"P52":  {Name: "has current owner", InverseName: "is current owner of"},
	"P53":  {Name: "has former or current location", InverseName: "is former or current location of"},
	"P67":  {Name: "refers to", InverseName: "is referred to by"},
	"P73":  {Name: "has translation", InverseName: "is translation of"},
	"P74":  {Name: "has current or former residence", InverseName: "is current or former residence of"},
	"P89":  {Name: "falls within", InverseName: "contains"},
	"P107": {Name: "has current or former member", InverseName: "is current or former member of"},
	"P108": {Name: "has produced", InverseName: "was produced by"},
	"P117": {Name: "occurs during", InverseName: "includes"},
	"P127": {Name: "has broader term", InverseName: "has narrower term"},
	"P128": {Name: "carries", InverseName: "is carried by"},
	"P134": {Name: "continued", InverseName: "was continued by"},
	"OA7":  {Name: "has relationship to", InverseName: "has relationship to"},
	"OA8":  {Name: "begins in", InverseName: "is first appearance of"},
	"OA9":  {Name: "ends in", InverseName: "is last appearance of"},
}

func LookupProperty(code string) (Property, bool) {
	p, ok := properties[code]
	if !ok {
		return Property{}, false
	}
	p.Code = code
	return p, true
}

func Properties() []Property {
	out := make([]Property, 0, len(properties))
	for code := range properties {
		p, _ := LookupProperty(code)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// PropertyCodes lists every known code, used when a caller asks for links of
// any property.
func PropertyCodes() []string {
	out := make([]string, 0, len(properties))
	for _, p := range Properties() {
		out = append(out, p.Code)
	}
	return out
}
