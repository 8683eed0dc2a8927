package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"txdecoder/internal/config"
	decodeerrors "txdecoder/internal/errors"
	"txdecoder/internal/logging"
	"txdecoder/internal/output"
	"txdecoder/internal/shutdown"
	"txdecoder/internal/txdecoder"
)

var (
	configFile string
	verbose    bool

	// decode 参数
	chain   string
	format  string
	publish bool
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "txdecoder",
		Short:         "EVM 交易解码工具",
		Long:          `按哈希获取交易与收据，解码调用数据与事件日志，提取代币转账并生成可读摘要`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultConfigPath, "配置文件路径")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "详细输出")

	decodeCmd := &cobra.Command{
		Use:   "decode <tx-hash>",
		Short: "解码一笔交易",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecode,
	}
	decodeCmd.Flags().StringVar(&chain, "chain", "ethereum", "链标识 (ethereum, base, arbitrum, polygon)")
	decodeCmd.Flags().StringVar(&format, "format", "", "输出格式 (text, json)，默认取配置")
	decodeCmd.Flags().BoolVar(&publish, "publish", false, "同时发送到配置的 Kafka topic")
	decodeCmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "整体超时")

	chainsCmd := &cobra.Command{
		Use:   "chains",
		Short: "列出支持的链",
		RunE:  runChains,
	}

	rootCmd.AddCommand(decodeCmd, chainsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "执行失败: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	gs := shutdown.NewGracefulShutdown(10*time.Second, logger)
	defer func() {
		gs.Shutdown()
		if err := gs.Wait(); err != nil {
			logger.WithError(err).Warn("关闭资源失败")
		}
	}()

	decoder, pool, err := txdecoder.Build(cfg, logger)
	if err != nil {
		return err
	}
	gs.Register("rpc-pool", func(context.Context) error { pool.Close(); return nil }, 2)

	outputCfg := *cfg.Output
	if format != "" {
		outputCfg.Format = format
	}
	if outputCfg.Format == "kafka" {
		// 终端仍然需要可读结果
		outputCfg.Format = "text"
	}
	outputter, err := output.NewOutput(&outputCfg, cfg.Registry(), logger)
	if err != nil {
		return fmt.Errorf("创建输出器失败: %w", err)
	}
	gs.Register("output", func(context.Context) error { return outputter.Close() }, 1)

	var publisher output.Output
	if publish || cfg.Output.Format == "kafka" {
		publisher, err = output.NewKafkaOutput(cfg.Output.Kafka, logger)
		if err != nil {
			return err
		}
		gs.Register("kafka", func(context.Context) error { return publisher.Close() }, 1)
	}

	ctx, cancel := context.WithTimeout(gs.Context(), timeout)
	defer cancel()

	result, err := decoder.Decode(ctx, args[0], chain)
	if err != nil {
		txErr := decodeerrors.ToTransactionError(err)
		if txErr.Code != "" {
			return fmt.Errorf("[%s] %s", txErr.Code, txErr.Message)
		}
		return fmt.Errorf("%s", txErr.Message)
	}

	if err := outputter.WriteTransaction(result); err != nil {
		return err
	}
	if publisher != nil {
		if err := publisher.WriteTransaction(result); err != nil {
			return fmt.Errorf("发送解码结果失败: %w", err)
		}
	}
	return nil
}

func runChains(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tCHAIN ID\tNATIVE\tEXPLORER")
	for _, c := range cfg.Registry().All() {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", c.Key, c.Name, c.ChainID, c.NativeCurrency, c.ExplorerURL)
	}
	return w.Flush()
}
