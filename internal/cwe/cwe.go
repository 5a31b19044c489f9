// Package cwe maps finding descriptions to a CWE category.
package cwe

import (
	"strings"

	"github.com/ppiankov/codespectre/internal/vuln"
)

// Category is a weakness class with illustrative CVE identifiers.
type Category struct {
	Name        string
	CWE         string
	Title       string
	CVEExamples []string
	triggers    []string
}

const (
	CodeInjection           = "code-injection"
	SQLInjection            = "sql-injection"
	CrossSiteScripting      = "cross-site-scripting"
	BufferOverflow          = "buffer-overflow"
	HardcodedSecret         = "hardcoded-secret"
	InsecureDeserialization = "insecure-deserialization"
)

// table is checked in order; the first category with a matching trigger wins.
var table = []Category{
	{
		Name:        CodeInjection,
		CWE:         "CWE-94",
		Title:       "Improper Control of Generation of Code ('Code Injection')",
		CVEExamples: []string{"CVE-2017-5638", "CVE-2021-44228"},
		triggers:    []string{"eval", "'exec'", "runtime.exec", "code injection"},
	},
	{
		Name:        SQLInjection,
		CWE:         "CWE-89",
		Title:       "Improper Neutralization of Special Elements used in an SQL Command ('SQL Injection')",
		CVEExamples: []string{"CVE-2023-34362", "CVE-2022-21661"},
		triggers:    []string{"sql injection", "execute(", "raw sql"},
	},
	{
		Name:        CrossSiteScripting,
		CWE:         "CWE-79",
		Title:       "Improper Neutralization of Input During Web Page Generation ('Cross-site Scripting')",
		CVEExamples: []string{"CVE-2020-11022", "CVE-2020-11023"},
		triggers:    []string{"xss", "innerhtml", "document.write"},
	},
	{
		Name:        BufferOverflow,
		CWE:         "CWE-119",
		Title:       "Improper Restriction of Operations within the Bounds of a Memory Buffer",
		CVEExamples: []string{"CVE-2014-0160", "CVE-2021-3156"},
		triggers:    []string{"buffer overflow", "strcpy"},
	},
	{
		Name:        HardcodedSecret,
		CWE:         "CWE-798",
		Title:       "Use of Hard-coded Credentials",
		CVEExamples: []string{"CVE-2020-29583", "CVE-2018-0150"},
		triggers:    []string{"hardcoded", "hard-coded", "password"},
	},
	{
		Name:        InsecureDeserialization,
		CWE:         "CWE-502",
		Title:       "Deserialization of Untrusted Data",
		CVEExamples: []string{"CVE-2015-4852", "CVE-2017-9805"},
		triggers:    []string{"deserialization", "pickle", "xmldecoder"},
	},
}

// Classify returns the first category whose trigger occurs in description,
// compared case-insensitively.
func Classify(description string) (Category, bool) {
	d := strings.ToLower(description)
	for _, c := range table {
		for _, t := range c.triggers {
			if strings.Contains(d, t) {
				return c, true
			}
		}
	}
	return Category{}, false
}

// Apply sets the CWE and CVE fields of f. Findings with no matching
// category are left unchanged.
func Apply(f *vuln.Finding) {
	c, ok := Classify(f.Description)
	if !ok {
		return
	}
	f.CWE = c.CWE
	f.CVE = append([]string(nil), c.CVEExamples...)
}

// Categories returns the classification table in priority order.
func Categories() []Category {
	out := make([]Category, len(table))
	copy(out, table)
	return out
}
