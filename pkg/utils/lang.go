package utils

import (
	"github.com/abadojack/whatlanggo"
)

var whatLangOpts = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Rus: true,
		whatlanggo.Cmn: true,
		whatlanggo.Fra: true,
		whatlanggo.Deu: true,
		whatlanggo.Spa: true,
	},
}

// WhatLang detects the dominant language of text. Short or ambiguous input
// yields an empty string.
func WhatLang(text string) string {
	info := whatlanggo.DetectWithOptions(text, whatLangOpts)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.String()
}
