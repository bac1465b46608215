package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// RelayGuardService はフェデレーションリレーのSSRF防止機能のインターフェースを定義する。
// リモートインスタンスへの送信時に使用される。
type RelayGuardService interface {
	// NewRelayClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// safeurlライブラリにより、プライベートIP、ループバック、リンクローカル、
	// メタデータIPへのリクエストが自動的にブロックされる。
	// allowPrivateが真の場合はガードなしのクライアントを返す（開発・テスト用）。
	NewRelayClient(timeout time.Duration) *http.Client

	// ValidateInstanceHost はリレー先インスタンスのホスト名を事前に検証する。
	ValidateInstanceHost(host string) error
}

// blockedNetworks はSSRF防止でブロックされるネットワーク範囲。
// パッケージ初期化時に1回だけパースし、ValidateInstanceHostでの検証に使用する。
// safeurlはnet.DialerレベルでDNS解決後のIPアドレスも検証するため、
// DNS再バインディング攻撃にも対応している。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック (RFC 1122)
		"127.0.0.0/8",
		// リンクローカル (RFC 3927) - クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6ループバック
		"::1/128",
		// IPv6リンクローカル
		"fe80::/10",
		// IPv6ユニークローカル
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

// relayGuard はRelayGuardServiceの実装。
type relayGuard struct {
	allowPrivate bool
}

// NewRelayGuard はRelayGuardServiceの新しいインスタンスを生成する。
// allowPrivateはdocker-compose等のローカル環境で複数インスタンスを
// 立てて動作確認する場合にのみ真にする。
func NewRelayGuard(allowPrivate bool) *relayGuard {
	return &relayGuard{allowPrivate: allowPrivate}
}

// NewRelayClient はSSRF防止機能付きのHTTPクライアントを生成する。
func (g *relayGuard) NewRelayClient(timeout time.Duration) *http.Client {
	if g.allowPrivate {
		return &http.Client{Timeout: timeout}
	}

	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// ValidateInstanceHost はリレー先インスタンスのホスト名を事前に検証する。
// DNS解決を伴わない静的な検証を行う。DNS再バインディング攻撃は
// NewRelayClientが生成するHTTPクライアント側のDialer検証で防止される。
func (g *relayGuard) ValidateInstanceHost(host string) error {
	if host == "" {
		return fmt.Errorf("empty instance host")
	}
	if strings.ContainsAny(host, "/?#@ ") {
		return fmt.Errorf("invalid instance host: %s", host)
	}

	if g.allowPrivate {
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		for _, network := range blockedNetworks {
			if network.Contains(ip) {
				return fmt.Errorf("blocked IP address: %s", ip.String())
			}
		}
	}

	return nil
}
