package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for error codes.
// data provides optional metadata to embed in the message (for example,
// "expected" or "alias").
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		"invalid_type":    "invalid type",
		"required":        "required field missing",
		"unknown_key":     "cannot set unknown attribute",
		"duplicate_key":   "duplicate key",
		"invalid_enum":    "value not in permitted set",
		"invalid_format":  "invalid format",
		"no_alternative":  "no alternative of the union accepted the value",
		"schema_mismatch": "value does not match the schema",
		"parse_error":     "parse error",
		"conflict":        "conflicting values",
		"alias_only":      "if an alias is defined, subscripting is only allowed using the alias; use [{alias}] instead",
	},
	"ja": {
		"invalid_type":    "型が不正です",
		"required":        "必須フィールドが不足しています",
		"unknown_key":     "未知の属性は設定できません",
		"duplicate_key":   "キーが重複しています",
		"invalid_enum":    "許可されていない値です",
		"invalid_format":  "形式が不正です",
		"no_alternative":  "どの型にも一致しません",
		"schema_mismatch": "スキーマに一致しません",
		"parse_error":     "解析エラー",
		"conflict":        "値が競合しています",
		"alias_only":      "エイリアスが定義されている場合は [{alias}] を使用してください",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		return code
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var (
	mu                sync.RWMutex
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	mu.Lock()
	currentTranslator = dictTranslator{lang: lang}
	mu.Unlock()
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	mu.Lock()
	defer mu.Unlock()
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
