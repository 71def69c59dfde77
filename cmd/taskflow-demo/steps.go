package main

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/askiada/go-taskflow/internal/config"
	"github.com/askiada/go-taskflow/pkg/flow"
	"github.com/askiada/go-taskflow/pkg/flow/model"
)

const (
	actionEmpty      flow.Action = "empty"
	maxSummaryRunes              = 160
	truncationSuffix             = "..."
)

var errSummaryTooLong = errors.New("summary too long")

// document is the shared state of a summary run.
type document struct {
	Text      string
	Sections  []string
	Summaries []string
	HTML      string
}

// buildFlow assembles split -> summarise -> render. An input without any paragraph
// goes straight to render.
func buildFlow(cfg *config.Config, logger *zap.Logger, hooks ...model.FlowOption) (*flow.Flow[document], error) {
	g := flow.NewGraph[document](flow.GraphLogger(logger))

	split, err := g.Add("split", splitStep{size: cfg.SectionSize})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add split step")
	}

	summarise, err := g.Add("summarise", summariseStep{logger: logger},
		flow.StepStrategy(flow.ParallelBatch),
		flow.StepRetry(cfg.MaxAttempts, cfg.RetryDelay),
	)
	if err != nil {
		return nil, errors.Wrap(err, "unable to add summarise step")
	}

	render, err := g.Add("render", renderStep{})
	if err != nil {
		return nil, errors.Wrap(err, "unable to add render step")
	}

	for _, link := range []struct {
		from   flow.StepID
		action flow.Action
		to     flow.StepID
	}{
		{split, flow.DefaultAction, summarise},
		{split, actionEmpty, render},
		{summarise, flow.DefaultAction, render},
	} {
		err = g.Connect(link.from, link.action, link.to)
		if err != nil {
			return nil, errors.Wrap(err, "unable to connect steps")
		}
	}

	return flow.NewFlow(g, split,
		flow.FlowLogger(logger),
		flow.FlowParams(flow.Params{"title": cfg.Title}),
		flow.FlowHooks(hooks...),
	)
}

type splitStep struct {
	flow.Base[document]
	size int
}

func (splitStep) Prepare(_ context.Context, doc *document, _ flow.Params) (any, error) {
	return doc.Text, nil
}

func (s splitStep) Execute(_ context.Context, input any) (any, error) {
	text, _ := input.(string)

	return splitSections(text, s.size), nil
}

func (splitStep) Finalize(_ context.Context, doc *document, _ flow.Params, _, output any) (flow.Action, error) {
	doc.Sections, _ = output.([]string)
	if len(doc.Sections) == 0 {
		return actionEmpty, nil
	}

	return flow.DefaultAction, nil
}

// splitSections groups the blank-line separated paragraphs of text by size.
func splitSections(text string, size int) []string {
	paragraphs := []string{}

	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	sections := []string{}
	for start := 0; start < len(paragraphs); start += size {
		end := min(start+size, len(paragraphs))
		sections = append(sections, strings.Join(paragraphs[start:end], "\n\n"))
	}

	return sections
}

// summariseStep stands in for a model call: the summary of a section is its first sentence.
type summariseStep struct {
	flow.Base[document]
	logger *zap.Logger
}

func (summariseStep) Prepare(_ context.Context, doc *document, _ flow.Params) (any, error) {
	return doc.Sections, nil
}

func (s summariseStep) Execute(ctx context.Context, input any) (any, error) {
	section, _ := input.(string)
	item, _ := flow.ItemFromContext(ctx)

	s.logger.Debug("summarising section",
		zap.Int("section", item),
		zap.Int("attempt", flow.AttemptFromContext(ctx)))

	return firstSentence(section)
}

// Fallback keeps the beginning of a section whose summary could not be produced.
func (s summariseStep) Fallback(_ context.Context, input any, err error) (any, error) {
	section, _ := input.(string)

	s.logger.Warn("using truncated section as summary", zap.Error(err))

	return truncate(section, maxSummaryRunes), nil
}

func (summariseStep) Finalize(_ context.Context, doc *document, _ flow.Params, _, output any) (flow.Action, error) {
	outputs, _ := output.([]any)

	doc.Summaries = make([]string, len(outputs))
	for i, out := range outputs {
		doc.Summaries[i], _ = out.(string)
	}

	return flow.DefaultAction, nil
}

func firstSentence(section string) (string, error) {
	sentence := section

	for i, r := range section {
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		next := i + utf8.RuneLen(r)
		if next == len(section) || section[next] == ' ' || section[next] == '\n' {
			sentence = section[:next]

			break
		}
	}

	sentence = strings.TrimSpace(sentence)
	if utf8.RuneCountInString(sentence) > maxSummaryRunes {
		return "", errors.Wrapf(errSummaryTooLong, "%d characters", utf8.RuneCountInString(sentence))
	}

	return sentence, nil
}

func truncate(text string, size int) string {
	if utf8.RuneCountInString(text) <= size {
		return text
	}

	runes := []rune(text)

	return strings.TrimSpace(string(runes[:size])) + truncationSuffix
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
{{range $i, $s := .Sections}}<section id="section-{{$i}}">
<p>{{$s}}</p>
</section>
{{else}}<p>Nothing to summarise.</p>
{{end}}</body>
</html>
`))

type page struct {
	Title    string
	Sections []string
}

type renderStep struct {
	flow.Base[document]
}

func (renderStep) Prepare(_ context.Context, doc *document, params flow.Params) (any, error) {
	return page{Title: params.GetString("title"), Sections: doc.Summaries}, nil
}

func (renderStep) Execute(_ context.Context, input any) (any, error) {
	var buf bytes.Buffer

	err := pageTemplate.Execute(&buf, input)
	if err != nil {
		return nil, errors.Wrap(err, "unable to render page")
	}

	return buf.String(), nil
}

func (renderStep) Finalize(_ context.Context, doc *document, _ flow.Params, _, output any) (flow.Action, error) {
	doc.HTML, _ = output.(string)

	return flow.DefaultAction, nil
}
