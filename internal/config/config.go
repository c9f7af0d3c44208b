package config

import (
	"github.com/sh4d0wy/fox-backend/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Auction  AuctionConfig  `mapstructure:"auction"`
	Task     TaskConfig     `mapstructure:"task"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 链配置
type ChainConfig struct {
	ChainId           int64  `mapstructure:"chain_id"`           // 链ID
	RpcUrl            string `mapstructure:"rpc_url"`            // RPC节点URL
	PrivateKey        string `mapstructure:"private_key"`        // 服务私钥（仅用于强制揭示随机数）
	ProgramAddress    string `mapstructure:"program_address"`    // 活动程序合约地址
	RandomnessAddress string `mapstructure:"randomness_address"` // 随机数合约地址
	Confirmations     uint64 `mapstructure:"confirmations"`      // 终局确认深度
	StartBlock        uint64 `mapstructure:"start_block"`        // 事件扫描起始区块
}

// AuctionConfig 拍卖默认参数
type AuctionConfig struct {
	ExtensionSeconds int64 `mapstructure:"extension_seconds"` // soft close 默认延长窗口（秒）
	MinIncrementPct  uint  `mapstructure:"min_increment_pct"` // 默认最小加价百分比
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

// MonitorConfig 链上事件监控配置
type MonitorConfig struct {
	Interval  int `mapstructure:"interval"`   // 扫描间隔（秒）
	BatchSize int `mapstructure:"batch_size"` // 单次扫描区块数
	PoolSize  int `mapstructure:"pool_size"`  // 日志处理协程池大小
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fox")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "fox")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.chain_id", 1)
	viper.SetDefault("chain.confirmations", 12)
	viper.SetDefault("chain.start_block", 0)
	viper.SetDefault("auction.extension_seconds", 120)
	viper.SetDefault("auction.min_increment_pct", 5)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("monitor.interval", 30)
	viper.SetDefault("monitor.batch_size", 500)
	viper.SetDefault("monitor.pool_size", 8)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
