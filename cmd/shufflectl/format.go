package main

import (
	"fmt"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/manifoldco/promptui"
)

var FuncMap = template.FuncMap{
	"humanBytes": func(n uint64) string {
		return humanize.Bytes(n)
	},
	"humanCount": func(n int) string {
		return humanize.Comma(int64(n))
	},
	"bytesToString": func(b []byte) string { return string(b) },
	"shorten": func(s string) string {
		if len(s) <= 8 {
			return s
		}
		return s[0:8]
	},
}

func ParseTemplate(body string) (*template.Template, error) {
	return template.New("").Funcs(promptui.FuncMap).Funcs(FuncMap).Parse(fmt.Sprintf("%s\n", body))
}
