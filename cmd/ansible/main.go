// Package main 提供 ansible 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/dep2p/go-ansible"
	"github.com/dep2p/go-ansible/config"
	"github.com/dep2p/go-ansible/internal/util/logger"
	"github.com/dep2p/go-ansible/pkg/types"
)

var log = logger.Logger("ansible/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 节点参数
	// ─────────────────────────────────────────────────────────────────────
	configFile = flag.String("config", "", "配置文件路径（JSON）")
	domains    = flag.String("domain", "", "启动时注册的域名（逗号分隔，与配置文件合并）")

	// ─────────────────────────────────────────────────────────────────────
	// 单次发送
	// ─────────────────────────────────────────────────────────────────────
	sendAddr    = flag.String("send", "", "发送一条消息到该地址后退出（ansible://<域>/#<能力>）")
	content     = flag.String("content", "", "消息负载")
	hint        = flag.String("hint", "", "附带的本地域名提示")
	sendTimeout = flag.Duration("timeout", 10*time.Second, "等待发送结果的时长")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Usage = printHelp
	flag.Parse()

	if *showVersion {
		printVersion()
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	node, err := ansible.Start(ctx, ansible.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := node.Stop(stopCtx); err != nil {
			log.Warn("停止节点失败", "error", err)
		}
	}()

	for _, name := range cfg.Domains {
		contact, err := node.RegisterDomain(ctx, name, receptionist(name))
		if err != nil {
			return fmt.Errorf("注册域 %q: %w", name, err)
		}
		fmt.Printf("已注册域: %s\n", name)
		for scheme, addr := range contact.Data {
			fmt.Printf("  %s -> %s\n", scheme, addr)
		}
	}

	if *sendAddr != "" {
		return sendOnce(ctx, node)
	}

	fmt.Printf("节点已启动，传输: %s\n", strings.Join(node.Transports(), ", "))
	fmt.Println("按 Ctrl+C 退出")
	waitForSignal()
	fmt.Println("\n正在关闭...")
	return nil
}

// loadConfig 读取配置文件并合并命令行域名
func loadConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	for _, name := range splitAndTrim(*domains, ",") {
		if !slices.Contains(cfg.Domains, name) {
			cfg.Domains = append(cfg.Domains, name)
		}
	}
	return cfg, cfg.Validate()
}

// receptionist 返回只记录日志与标准输出的接待者
func receptionist(domain string) types.Receptionist {
	return func(msg *types.Message) {
		log.Info("收到消息", "domain", domain, "address", msg.Address, "size", len(msg.Content))
		fmt.Printf("[%s] %s: %s\n", domain, msg.Address, msg.Content)
	}
}

// sendOnce 发送一条消息并打印结果
func sendOnce(ctx context.Context, node *ansible.Node) error {
	result := node.Deliver(ctx, *sendAddr, []byte(*content), *hint)

	waitCtx, cancel := context.WithTimeout(ctx, *sendTimeout)
	defer cancel()

	if err := result.Wait(waitCtx); err != nil {
		return fmt.Errorf("发送到 %s 失败: %w", *sendAddr, err)
	}
	fmt.Printf("已送达: %s\n", *sendAddr)
	return nil
}

// ============================================================================
//                              辅助函数
// ============================================================================

// splitAndTrim 分割字符串并去除空白
func splitAndTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// waitForSignal 等待退出信号
func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}

func printVersion() {
	fmt.Println(ansible.VersionInfo())
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `ansible - 位置透明的消息路由节点

用法:
  ansible [选项]

示例:
  ansible -domain alice
  ansible -config node.json -domain alice,bob
  ansible -domain carol -send ansible://alice/#echo -content hello -hint carol

选项:
`)
	flag.PrintDefaults()
}
