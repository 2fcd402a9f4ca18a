// Package proxyurl 校验 studio 客户端的出站代理配置。
//
// 无效代理在构造客户端时立即失败，不会静默回退为直连。
package proxyurl

import (
	"fmt"
	"net/url"
	"strings"
)

// allowedSchemes 代理协议白名单（与 req 传输层支持的协议一致）。
var allowedSchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// Parse 解析并验证代理 URL。
//
//   - 空或纯空白 → ("", nil, nil)，表示直连
//   - 有效 → (trimmed, *url.URL, nil)，scheme 统一为小写
//   - socks5:// 升级为 socks5h://，DNS 交给代理端解析
//   - 无效 → ("", nil, error)
func Parse(raw string) (trimmed string, parsed *url.URL, err error) {
	trimmed = strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil, nil
	}

	parsed, err = url.Parse(trimmed)
	if err != nil {
		// 不用 %w：url.Parse 的错误会带上原始 URL，可能含凭据。
		return "", nil, fmt.Errorf("invalid proxy URL: %v", err)
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return "", nil, fmt.Errorf("proxy URL missing host: %s", parsed.Redacted())
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !allowedSchemes[scheme] {
		return "", nil, fmt.Errorf("unsupported proxy scheme %q (allowed: http, https, socks5, socks5h)", scheme)
	}
	// x/net/proxy 对 socks5:// 在本地解析域名，socks5h:// 才发给代理端。
	if scheme == "socks5" {
		scheme = "socks5h"
	}
	parsed.Scheme = scheme
	// url.Parse 已把 parsed.Scheme 转成小写，trimmed 需按原文判断。
	if !strings.HasPrefix(trimmed, scheme+":") {
		trimmed = parsed.String()
	}
	return trimmed, parsed, nil
}
