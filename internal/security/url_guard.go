package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// maxURLLength はプロフィール画像URLの最大長。
const maxURLLength = 2048

// DefaultCheckTimeout は到達性チェックの既定タイムアウト。
const DefaultCheckTimeout = 5 * time.Second

// allowedSchemes はプロフィール画像URLに許可されるスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks はブロック対象のネットワーク範囲。
// パッケージ初期化時に1回だけパースし、ValidateURLでの検証に使用する。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック
		"127.0.0.0/8",
		// リンクローカル（クラウドメタデータIPを含む）
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// blockedHostnames はブロック対象のホスト名。
var blockedHostnames = []string{
	"localhost",
}

// URLGuard はプロフィール画像URLの安全性を検証する。
// 画像そのものは保存せず参照URLのみを保持するため、クライアントが内部ネットワークを
// 指すURLを登録できないよう静的に検証する。到達性チェックを有効にした場合は、
// safeurlのクライアントでHEADリクエストを送り、DNS解決後のIPアドレスも検証する。
type URLGuard struct {
	client *http.Client
}

// NewURLGuard はURLGuardを生成する。
// checkReachableがfalseの場合は静的検証のみを行う。
func NewURLGuard(checkReachable bool, timeout time.Duration) *URLGuard {
	g := &URLGuard{}
	if checkReachable {
		if timeout <= 0 {
			timeout = DefaultCheckTimeout
		}
		g.client = newSafeClient(timeout)
	}
	return g
}

// newSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// DNS再バインディングにも対応する。
func newSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ChecksReachability は到達性チェックが有効かどうかを返す。
func (g *URLGuard) ChecksReachability() bool {
	return g.client != nil
}

// ValidateProfilePicture はプロフィール画像URLを検証する。
// 静的検証に加え、到達性チェックが有効な場合はHEADリクエストで2xx応答を確認する。
func (g *URLGuard) ValidateProfilePicture(ctx context.Context, rawURL string) error {
	if err := g.ValidateURL(rawURL); err != nil {
		return err
	}
	if g.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("profile picture is not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("profile picture returned status %d", resp.StatusCode)
	}
	return nil
}

// ValidateURL はDNS解決を伴わない静的な検証を行う。
// スキーム、ホスト、IPアドレスを検証し、危険なURLの場合はエラーを返す。
func (g *URLGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("empty URL")
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("URL exceeds %d characters", maxURLLength)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("disallowed scheme: %q (allowed: %v)", scheme, allowedSchemes)
	}
	if parsed.User != nil {
		return errors.New("credentials in URL are not allowed")
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if isBlockedHostname(host) {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func isBlockedHostname(host string) bool {
	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	for _, blocked := range blockedHostnames {
		if lower == blocked || strings.HasSuffix(lower, "."+blocked) {
			return true
		}
	}
	return false
}
