package logredact

import (
	"strings"
	"testing"
)

func TestRedactText_JSONLike(t *testing.T) {
	in := `{"access_token":"ya29.a0AfH6SMDUMMY","refresh_token":"1//0gDUMMY","topic":"volcanoes"}`
	out := RedactText(in)
	if out == in {
		t.Fatalf("expected redaction, got unchanged")
	}
	if want := `"access_token":"***"`; !strings.Contains(out, want) {
		t.Fatalf("expected %q in %q", want, out)
	}
	if want := `"refresh_token":"***"`; !strings.Contains(out, want) {
		t.Fatalf("expected %q in %q", want, out)
	}
	if want := `"topic":"volcanoes"`; !strings.Contains(out, want) {
		t.Fatalf("expected %q to survive in %q", want, out)
	}
}

func TestRedactURL_PresignedMediaURL(t *testing.T) {
	in := "https://bucket.s3.amazonaws.com/audio/scene-1.mp3?X-Amz-Credential=AKIA%2F20240101&X-Amz-Signature=deadbeef&X-Amz-Expires=3600"
	out := RedactURL(in)
	if strings.Contains(out, "deadbeef") || strings.Contains(out, "AKIA") {
		t.Fatalf("expected signature and credential redacted, got %q", out)
	}
	if !strings.Contains(out, "X-Amz-Expires=3600") {
		t.Fatalf("expected non-sensitive params kept, got %q", out)
	}
	if !strings.HasPrefix(out, "https://bucket.s3.amazonaws.com/audio/scene-1.mp3?") {
		t.Fatalf("expected path kept, got %q", out)
	}
}

func TestRedactText_TokenDoesNotEatLongerKeys(t *testing.T) {
	out := RedactText("access_token=abc&token=def")
	if out != "access_token=***&token=***" {
		t.Fatalf("unexpected redaction %q", out)
	}
}

func TestRedactText_ExtraKeyCacheUsesNormalizedSortedKey(t *testing.T) {
	clearExtraTextPatternCache()

	out1 := RedactText("custom_secret=abc", "Custom_Secret", " custom_secret ")
	out2 := RedactText("custom_secret=xyz", "custom_secret")
	if !strings.Contains(out1, "custom_secret=***") {
		t.Fatalf("expected custom key redacted in first call, got %q", out1)
	}
	if !strings.Contains(out2, "custom_secret=***") {
		t.Fatalf("expected custom key redacted in second call, got %q", out2)
	}

	if got := countExtraTextPatternCacheEntries(); got != 1 {
		t.Fatalf("expected 1 cached pattern set, got %d", got)
	}
}

func TestRedactText_DefaultPathDoesNotUseExtraCache(t *testing.T) {
	clearExtraTextPatternCache()

	out := RedactText("api_key=abc")
	if !strings.Contains(out, "api_key=***") {
		t.Fatalf("expected default key redacted, got %q", out)
	}
	if got := countExtraTextPatternCacheEntries(); got != 0 {
		t.Fatalf("expected extra cache to remain empty, got %d", got)
	}
}

func clearExtraTextPatternCache() {
	extraTextPatternCache.Range(func(key, value any) bool {
		extraTextPatternCache.Delete(key)
		return true
	})
}

func countExtraTextPatternCacheEntries() int {
	count := 0
	extraTextPatternCache.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
