package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-taskflow/pkg/flow/measure"
)

// DOTDrawer is a drawer that writes the flow graph in the Graphviz DOT format.
type DOTDrawer struct {
	mu          sync.Mutex
	graph       graph.Graph[string, string]
	attributes  map[string]string
	dotFileName string
}

// NewDOTDrawer creates a new DOT drawer writing to dotFileName.
func NewDOTDrawer(dotFileName string) *DOTDrawer {
	return &DOTDrawer{
		dotFileName: dotFileName,
		graph:       graph.New(graph.StringHash, graph.Directed()),
		attributes:  make(map[string]string),
	}
}

// AddStep adds a step to the graph. Adding the same step twice is a no-op.
func (d *DOTDrawer) AddStep(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.graph.AddVertex(name)
	if err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrap(err, "unable to add vertex")
	}

	return nil
}

// AddLink adds an edge labelled with action. Several actions leading to the same step
// share one edge listing all of them.
func (d *DOTDrawer) AddLink(fromName, toName, action string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.graph.AddEdge(fromName, toName, graph.EdgeAttribute("label", action))
	if err == nil {
		return nil
	}

	if !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", fromName, toName)
	}

	existing, err := d.graph.Edge(fromName, toName)
	if err != nil {
		return errors.Wrapf(err, "unable to get edge from %s to %s", fromName, toName)
	}

	actions := strings.Split(existing.Properties.Attributes["label"], ", ")
	for _, a := range actions {
		if a == action {
			return nil
		}
	}

	actions = append(actions, action)
	sort.Strings(actions)

	err = d.graph.UpdateEdge(fromName, toName, graph.EdgeAttribute("label", strings.Join(actions, ", ")))
	if err != nil {
		return errors.Wrapf(err, "unable to update edge from %s to %s", fromName, toName)
	}

	return nil
}

// Draw creates the DOT file.
func (d *DOTDrawer) Draw() error {
	file, err := os.Create(d.dotFileName)
	if err != nil {
		return errors.Wrapf(err, "unable to create file %s", d.dotFileName)
	}
	defer file.Close()

	err = d.Write(file)
	if err != nil {
		return errors.Wrapf(err, "unable to create dot file %s", d.dotFileName)
	}

	return nil
}

// Write renders the graph to wrt.
func (d *DOTDrawer) Write(wrt io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	options := make([]func(*description), 0, len(d.attributes))
	for k, v := range d.attributes {
		options = append(options, GraphAttribute(k, v))
	}

	return dot(d.graph, wrt, options...)
}

// SetTotalTime labels the graph with the time elapsed since startTime.
func (d *DOTDrawer) SetTotalTime(startTime time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.attributes["label"] = "total: " + time.Since(startTime).Round(time.Millisecond).String()

	return nil
}

const maxRGB = 240

// AddMeasure labels every step with its measure and colours edges from blue, rarely
// followed, to red, most followed.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var minTotal, maxTotal int64 = -1, 0

	for _, mt := range msr.AllMetrics() {
		for _, info := range mt.AllTransitions() {
			if minTotal < 0 || info.Total < minTotal {
				minTotal = info.Total
			}

			if info.Total > maxTotal {
				maxTotal = info.Total
			}
		}
	}

	for name, mt := range msr.AllMetrics() {
		_, properties, err := d.graph.VertexWithProperties(name)
		if errors.Is(err, graph.ErrVertexNotFound) {
			continue
		}

		if err != nil {
			return errors.Wrapf(err, "unable to get vertex %s properties", name)
		}

		if mt.Visits() > 0 {
			properties.Attributes["xlabel"] = fmt.Sprintf("%s, attempts: %d, fallbacks: %d",
				mt.AVGDuration(), mt.Attempts(), mt.Fallbacks())
		}

		for fromName, info := range mt.AllTransitions() {
			colour, err := gradient(info.Total, minTotal, maxTotal)
			if err != nil {
				return err
			}

			err = d.graph.UpdateEdge(fromName, name,
				graph.EdgeAttribute("xlabel", strconv.FormatInt(info.Total, 10)),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", colour),
			)
			if err != nil && !errors.Is(err, graph.ErrEdgeNotFound) {
				return errors.Wrap(err, "unable to update edge")
			}
		}
	}

	return nil
}

func gradient(curr, minValue, maxValue int64) (string, error) {
	fraction := 1.0
	if maxValue > minValue {
		fraction = float64(curr-minValue) / float64(maxValue-minValue)
	}

	red := maxRGB * fraction
	blue := maxRGB - red

	colour, err := colors.RGB(uint8(red), 0, uint8(blue)) //nolint
	if err != nil {
		return "", errors.Wrap(err, "unable to get colour")
	}

	return colour.ToHEX().String(), nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot(gra graph.Graph[string, string], wrt io.Writer, options ...func(*description)) error {
	desc, err := generateDOT(gra, options...)
	if err != nil {
		return errors.Wrap(err, "failed to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

// GraphAttribute is a functional option for the [dot] function.
func GraphAttribute(key, value string) func(*description) {
	return func(d *description) {
		d.Attributes[key] = value
	}
}

// generateDOT lists vertices and their edges sorted by name so the output is stable.
func generateDOT(gra graph.Graph[string, string], options ...func(*description)) (description, error) {
	desc := description{
		GraphType:    "digraph",
		Attributes:   make(map[string]string),
		EdgeOperator: "->",
		Statements:   make([]statement, 0),
	}

	for _, option := range options {
		option(&desc)
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]string, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}

	sort.Strings(vertices)

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		sourceAttributes := make(map[string]string, len(sourceProperties.Attributes))
		htmlAttributes := make(map[string]string)

		for k, v := range sourceProperties.Attributes {
			if k == "xlabel" {
				htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, v)

				continue
			}

			sourceAttributes[k] = v
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceAttributes,
			HTMLAttributes:   htmlAttributes,
		})

		targets := make([]string, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}

		sort.Strings(targets)

		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
