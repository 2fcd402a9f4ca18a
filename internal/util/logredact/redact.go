// Package logredact 在日志输出前脱敏 URL 与响应体中的凭据。
//
// 预签名媒体 URL（S3 X-Amz-Signature 等）与 token 类字段都会被替换为 ***。
package logredact

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

const redactedValue = "***"

var defaultSensitiveKeys = []string{
	"access_token",
	"refresh_token",
	"id_token",
	"token",
	"api_key",
	"apikey",
	"client_secret",
	"password",
	"signature",
	"x-amz-signature",
	"x-amz-credential",
	"x-amz-security-token",
}

type textPatterns struct {
	jsonPattern  *regexp.Regexp
	queryPattern *regexp.Regexp
}

var (
	defaultTextPatterns = compileTextPatterns(defaultSensitiveKeys)

	// extraTextPatternCache 按规范化后的额外 key 集合缓存编译结果。
	extraTextPatternCache sync.Map
)

// RedactText masks values of sensitive keys in JSON-like and query-like text.
func RedactText(input string, extraKeys ...string) string {
	if input == "" {
		return input
	}
	patterns := defaultTextPatterns
	if normalized := normalizeKeys(extraKeys); len(normalized) > 0 {
		patterns = extraPatterns(normalized)
	}
	out := patterns.jsonPattern.ReplaceAllString(input, `${1}"`+redactedValue+`"`)
	out = patterns.queryPattern.ReplaceAllString(out, `${1}=`+redactedValue)
	return out
}

// RedactURL is RedactText for a single URL; kept separate so call sites read naturally.
func RedactURL(raw string) string {
	return RedactText(raw)
}

func extraPatterns(normalized []string) *textPatterns {
	cacheKey := strings.Join(normalized, ",")
	if cached, ok := extraTextPatternCache.Load(cacheKey); ok {
		if p, ok := cached.(*textPatterns); ok {
			return p
		}
	}
	keys := make([]string, 0, len(defaultSensitiveKeys)+len(normalized))
	keys = append(keys, defaultSensitiveKeys...)
	keys = append(keys, normalized...)
	p := compileTextPatterns(keys)
	actual, _ := extraTextPatternCache.LoadOrStore(cacheKey, p)
	if cached, ok := actual.(*textPatterns); ok {
		return cached
	}
	return p
}

func normalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func compileTextPatterns(keys []string) *textPatterns {
	quoted := make([]string, 0, len(keys))
	for _, k := range keys {
		quoted = append(quoted, regexp.QuoteMeta(k))
	}
	// 长 key 优先，避免 token 抢先匹配 access_token 的后缀。
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	alternation := strings.Join(quoted, "|")
	return &textPatterns{
		jsonPattern:  regexp.MustCompile(`(?i)("(?:` + alternation + `)"\s*:\s*)"[^"]*"`),
		queryPattern: regexp.MustCompile(`(?i)\b(` + alternation + `)=[^&\s"']*`),
	}
}
