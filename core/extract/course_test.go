package extract_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/coursecrawl/core"
	"github.com/gaurav-prasanna/coursecrawl/core/extract"
)

const coursePage = `<html><body>
<h2 id="title-designator"><small>Intro</small>Intro to Programming</h2>
<p id="c-desc">
  Fundamentals of <b>programming</b> in Python.
</p>
<dl class="row">
  <dt class="col-sm-4">Units</dt><dd class="col-sm-8">4.5</dd>
  <dt class="col-sm-4">Transferability to CSU/UC</dt><dd class="col-sm-8">CSU, UC</dd>
  <dt class="col-sm-4">Prerequisite(s)</dt>
  <dd class="col-sm-8">
    <span>CIS 22A</span>
    <span>or equivalent</span>
  </dd>
  <dt class="col-sm-4">Advisory</dt><dd class="col-sm-8">EWRT 211</dd>
</dl>
</body></html>`

func TestCourseExtractor_FullPage(t *testing.T) {
	t.Parallel()

	rec, err := extract.New().Extract(coursePage)
	require.NoError(t, err)

	assert.Equal(t, "Intro", rec.Code)
	assert.Equal(t, "Intro to Programming", rec.Title)
	assert.Equal(t, "Fundamentals of programming in Python.", rec.Description)
	assert.Equal(t, "CSU, UC", rec.Transferability)
	assert.Equal(t, "CIS 22A or equivalent", rec.Prerequisites)
	assert.Equal(t, "EWRT 211", rec.Advisories)
}

func TestCourseExtractor_MissingElementsUseSentinels(t *testing.T) {
	t.Parallel()

	rec, err := extract.New().Extract(`<html><body><p>nothing here</p></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, core.EmptyRecord(""), rec)
	assert.Equal(t, "N/A", rec.Code)
	assert.Equal(t, "N/A", rec.Title)
	assert.Equal(t, "None", rec.Description)
}

func TestCourseExtractor_HeadingWithoutCode(t *testing.T) {
	t.Parallel()

	rec, err := extract.New().Extract(`<h2 id="title-designator">Lonely Title</h2>`)
	require.NoError(t, err)

	assert.Equal(t, "N/A", rec.Code)
	assert.Equal(t, "N/A", rec.Title, "a single segment has no title part")
}

func TestCourseExtractor_UnmatchedLabelLeavesFieldsAlone(t *testing.T) {
	t.Parallel()

	page := `<dl class="row"><dt class="col-sm-4">Units</dt><dd>5</dd></dl>`
	rec, err := extract.New().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "None", rec.Transferability)
	assert.Equal(t, "None", rec.Prerequisites)
	assert.Equal(t, "None", rec.Advisories)
}

func TestCourseExtractor_TermWithoutDefinitionIsIgnored(t *testing.T) {
	t.Parallel()

	page := `<dl class="row"><dt class="col-sm-4">Advisory</dt></dl>`
	rec, err := extract.New().Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "None", rec.Advisories)
}

func TestCourseExtractor_DuplicateLabelPolicy(t *testing.T) {
	t.Parallel()

	page := `<dl class="row">
	<dt class="col-sm-4">Prerequisite</dt><dd>MATH 1A</dd>
	<dt class="col-sm-4">Prerequisite (alternate)</dt><dd>MATH 1B</dd>
	</dl>`

	first, err := extract.New().Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "MATH 1A", first.Prerequisites)

	last, err := extract.New(extract.WithMatchPolicy(extract.LastMatch)).Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "MATH 1B", last.Prerequisites)
}

func TestCourseExtractor_LabelClaimedByFirstKeyword(t *testing.T) {
	t.Parallel()

	page := `<dl class="row"><dt class="col-sm-4">Prerequisite or Advisory</dt><dd>CIS 22B</dd></dl>`
	rec, err := extract.New().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "CIS 22B", rec.Prerequisites)
	assert.Equal(t, "None", rec.Advisories)
}

func TestCourseExtractor_DefinitionListOutsideRowIgnored(t *testing.T) {
	t.Parallel()

	page := `<dl><dt class="col-sm-4">Advisory</dt><dd>EWRT 1A</dd></dl>`
	rec, err := extract.New().Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "None", rec.Advisories)
}

type stubNormalizer struct {
	out string
	err error
}

func (s stubNormalizer) Normalize(string) (string, error) { return s.out, s.err }

func TestCourseExtractor_MarkdownDescription(t *testing.T) {
	t.Parallel()

	page := `<p id="c-desc">See <a href="/x">CIS 22A</a></p>`

	rec, err := extract.New(extract.WithMarkdownDescription(stubNormalizer{out: "See [CIS 22A](/x)"})).Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "See [CIS 22A](/x)", rec.Description)

	rec, err = extract.New(extract.WithMarkdownDescription(stubNormalizer{err: errors.New("boom")})).Extract(page)
	require.NoError(t, err)
	assert.Equal(t, "See CIS 22A", rec.Description, "falls back to plain text")
}

func TestCourseExtractor_LineBreaksInsideTextAreCollapsed(t *testing.T) {
	t.Parallel()

	page := "<h2 id=\"title-designator\"><small>CIS\n  22A</small>Beginning\n  Programming</h2>\n" +
		"<p id=\"c-desc\">Fundamentals of programming\n    in Python.</p>\n" +
		"<dl class=\"row\">\n" +
		"  <dt class=\"col-sm-4\">Prerequisite(s)</dt>\n" +
		"  <dd class=\"col-sm-8\">CIS 22A or\r\n  equivalent</dd>\n" +
		"</dl>"

	rec, err := extract.New().Extract(page)
	require.NoError(t, err)

	assert.Equal(t, "CIS 22A", rec.Code)
	assert.Equal(t, "Beginning Programming", rec.Title)
	assert.Equal(t, "Fundamentals of programming in Python.", rec.Description)
	assert.Equal(t, "CIS 22A or equivalent", rec.Prerequisites)
}
