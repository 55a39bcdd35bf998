package outline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/texforge/core/errors"
)

const reportYAML = `
class: report
options: [a4paper, 11pt]
title: Results & Methods
author: Ann
date: \today
maketitle: true
packages:
  - name: geometry
    options: [margin=1in]
body:
  - section:
      title: Intro
      label: sec:intro
      body:
        - text: 50% done & more
        - section:
            title: Detail
            body:
              - raw: '\emph{raw}'
  - table:
      spec: "|l|c|"
      rows:
        - hline: true
        - cells: [a, b]
        - cline: 1-2
        - empty: true
  - math:
      mode: inline
      source: x^2
  - matrix:
      style: pmatrix
      rows:
        - [1, 2]
        - [3, 4.5]
`

const reportXML = `<?xml version="1.0"?>
<document class="report" options="a4paper, 11pt" maketitle="true">
  <title>Results &amp; Methods</title>
  <author>Ann</author>
  <date>\today</date>
  <package name="geometry" options="margin=1in"/>
  <body>
    <section title="Intro" label="sec:intro">
      <text>50% done &amp; more</text>
      <section title="Detail">
        <raw>\emph{raw}</raw>
      </section>
    </section>
    <table spec="|l|c|">
      <hline/>
      <row><cell>a</cell><cell>b</cell></row>
      <cline range="1-2"/>
      <emptyrow/>
    </table>
    <math mode="inline">x^2</math>
    <matrix style="pmatrix">
      <row><cell>1</cell><cell>2</cell></row>
      <row><cell>3</cell><cell>4.5</cell></row>
    </matrix>
  </body>
</document>`

func TestBuildFromYAML(t *testing.T) {
	o, err := ParseYAML([]byte(reportYAML))
	if err != nil {
		t.Fatalf("ParseYAML() error: %v", err)
	}
	if o.BlockCount() != 7 {
		t.Errorf("BlockCount() = %d, want 7", o.BlockCount())
	}
	doc, err := o.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	got := doc.Render()
	for _, want := range []string{
		`\documentclass[a4paper,11pt]{report}`,
		`\usepackage[margin=1in]{geometry}`,
		`\usepackage{amsmath}`,
		`\title{Results \& Methods}`,
		`\date{\today}`,
		`\maketitle`,
		`\section{Intro}\label{sec:intro}`,
		`50\% done \& more`,
		`\subsection{Detail}`,
		`\emph{raw}`,
		`\begin{tabular}{|l|c|}`,
		`\hline`,
		`a & b \\`,
		`\cline{1-2}`,
		`$x^2$`,
		`\begin{pmatrix}`,
		`1 & 2`,
		`3 & 4.5`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Render() missing %q:\n%s", want, got)
		}
	}
}

func TestYAMLAndXMLAgree(t *testing.T) {
	fromYAML, err := ParseYAML([]byte(reportYAML))
	if err != nil {
		t.Fatal(err)
	}
	fromXML, err := ParseXML([]byte(reportXML))
	if err != nil {
		t.Fatalf("ParseXML() error: %v", err)
	}

	yamlDoc, err := fromYAML.Build()
	if err != nil {
		t.Fatal(err)
	}
	xmlDoc, err := fromXML.Build()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(yamlDoc.Render(), xmlDoc.Render()); diff != "" {
		t.Errorf("YAML and XML outlines render differently (-yaml +xml):\n%s", diff)
	}
}

func TestSectionLevels(t *testing.T) {
	o := &Outline{
		NoDefaultPackages: true,
		Body: []Block{{Section: &SectionBlock{
			Title: "Top",
			Level: "chapter",
			Body: []Block{{Section: &SectionBlock{
				Title:      "Child",
				Unnumbered: true,
			}}},
		}}},
	}
	doc, err := o.Build()
	if err != nil {
		t.Fatal(err)
	}
	got := doc.Render()
	if !strings.Contains(got, `\chapter{Top}`) || !strings.Contains(got, `\section*{Child}`) {
		t.Errorf("unexpected headings:\n%s", got)
	}
}

func TestNFCNormalization(t *testing.T) {
	decomposed := "Cafe\u0301"
	o := &Outline{NoDefaultPackages: true, Title: decomposed, Body: []Block{{Text: &decomposed}}}
	doc, err := o.Build()
	if err != nil {
		t.Fatal(err)
	}
	got := doc.Render()
	if strings.Contains(got, "\u0301") {
		t.Error("combining accent should be composed")
	}
	if strings.Count(got, "Caf\u00e9") != 2 {
		t.Errorf("expected composed text in title and body:\n%s", got)
	}
}

func TestBuildErrors(t *testing.T) {
	text := "x"
	tests := []struct {
		name   string
		body   []Block
		target error
		path   string
	}{
		{"empty block", []Block{{}}, errors.ErrInvalidInput, "body[0]"},
		{"two kinds", []Block{{Text: &text, Raw: &text}}, errors.ErrInvalidInput, "body[0]"},
		{"row arity", []Block{{Table: &TableBlock{Spec: "ll", Rows: []RowBlock{{Cells: []string{"a", "b"}}, {Cells: []string{"a"}}}}}}, errors.ErrShape, "body[0].table row 2"},
		{"cline range", []Block{{Table: &TableBlock{Spec: "ll", Rows: []RowBlock{{Cline: "2-3"}}}}}, errors.ErrRange, "body[0].table.rows[0]"},
		{"cline syntax", []Block{{Table: &TableBlock{Spec: "ll", Rows: []RowBlock{{Cline: "two"}}}}}, errors.ErrInvalidInput, "body[0].table.rows[0]"},
		{"hline with cells", []Block{{Table: &TableBlock{Spec: "ll", Rows: []RowBlock{{Hline: true, Cells: []string{"a", "b"}}}}}}, errors.ErrInvalidInput, "body[0].table.rows[0]: row sets more than one of cells, hline"},
		{"empty with cline", []Block{{Table: &TableBlock{Spec: "ll", Rows: []RowBlock{{Cells: []string{"a", "b"}}, {Empty: true, Cline: "1-2"}}}}}, errors.ErrInvalidInput, "body[0].table.rows[1]"},
		{"bad spec", []Block{{Table: &TableBlock{Spec: "l{"}}}, errors.ErrInvalidInput, "body[0].table"},
		{"ragged matrix", []Block{{Matrix: &MatrixBlock{Rows: [][]any{{1, 2}, {3}}}}}, errors.ErrShape, "body[0].matrix"},
		{"matrix cell type", []Block{{Matrix: &MatrixBlock{Rows: [][]any{{true}}}}}, errors.ErrInvalidInput, "body[0].matrix.rows[0][0]"},
		{"matrix style", []Block{{Matrix: &MatrixBlock{Style: "round", Rows: [][]any{{1}}}}}, errors.ErrInvalidInput, "body[0].matrix"},
		{"math mode", []Block{{Math: &MathBlock{Mode: "boxed"}}}, errors.ErrInvalidInput, "body[0].math"},
		{"section level", []Block{{Section: &SectionBlock{Level: "chapterette"}}}, errors.ErrInvalidInput, "body[0].section"},
		{"nested", []Block{{Section: &SectionBlock{Body: []Block{{}, {}}}}}, errors.ErrInvalidInput, "body[0].section.body[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Outline{Body: tt.body}).Build()
			if !errors.Is(err, tt.target) {
				t.Fatalf("Build() error = %v, want %v", err, tt.target)
			}
			if !strings.Contains(err.Error(), tt.path) {
				t.Errorf("Build() error %q should name %q", err, tt.path)
			}
		})
	}
}

func TestBuildPackageConflict(t *testing.T) {
	o := &Outline{Packages: []PackageDecl{
		{Name: "geometry", Options: []string{"a4paper"}},
		{Name: "geometry", Options: []string{"letterpaper"}},
	}}
	_, err := o.Build()
	if !errors.Is(err, errors.ErrConflict) {
		t.Errorf("Build() error = %v, want ErrConflict", err)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "colour: red\n"},
		{"wrong type", "body: 3\n"},
		{"syntax", "body: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.data))
			var perr *errors.ParseError
			if !errors.As(err, &perr) || perr.Format != "YAML outline" {
				t.Errorf("ParseYAML() error = %v, want a YAML outline ParseError", err)
			}
		})
	}
}

func TestParseYAMLEmpty(t *testing.T) {
	o, err := ParseYAML([]byte("  \n"))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := o.Build()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Render(), `\documentclass{article}`) {
		t.Errorf("empty outline should build an article")
	}
}

func TestParseXMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		msg  string
	}{
		{"malformed", "<document>", ""},
		{"wrong root", "<doc/>", "root element"},
		{"unknown block", "<document><body><video/></body></document>", "<video>"},
		{"unknown row", `<document><body><table spec="l"><col/></table></body></document>`, "<col>"},
		{"bad bool", `<document maketitle="maybe"/>`, "maketitle"},
		{"bad section bool", `<document><body><section unnumbered="2x"/></body></document>`, "unnumbered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseXML([]byte(tt.data))
			var perr *errors.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("ParseXML() error = %v, want ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("ParseXML() error %q should mention %q", err, tt.msg)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.yaml", FormatYAML},
		{"a.YML", FormatYAML},
		{"dir/a.xml", FormatXML},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}
	if _, err := DetectFormat("a.json"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("DetectFormat(a.json) error = %v, want ErrInvalidInput", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "report.yaml")
	xmlPath := filepath.Join(dir, "report.xml")
	os.WriteFile(yamlPath, []byte(reportYAML), 0644)
	os.WriteFile(xmlPath, []byte(reportXML), 0644)

	for _, path := range []string{yamlPath, xmlPath} {
		doc, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) error: %v", path, err)
		}
		if !strings.Contains(doc.Render(), `\section{Intro}`) {
			t.Errorf("Load(%s) lost the Intro section", path)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("Load(missing) error = %v, want IOError", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("colour: red\n"), 0644)
	_, err = Load(bad)
	var perr *errors.ParseError
	if !errors.As(err, &perr) || perr.Path != bad {
		t.Errorf("Load(bad) error = %v, want ParseError with path %s", err, bad)
	}

	ragged := filepath.Join(dir, "ragged.yaml")
	os.WriteFile(ragged, []byte("body:\n  - matrix:\n      rows: [[1, 2], [3]]\n"), 0644)
	_, err = Load(ragged)
	if !errors.Is(err, errors.ErrShape) || !strings.Contains(err.Error(), ragged) {
		t.Errorf("Load(ragged) error = %v, want ShapeError naming the file", err)
	}
}
