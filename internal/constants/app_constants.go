package constants

import "time"

const (
	// DefaultParseCacheTTL 解析结果缓存默认时长
	DefaultParseCacheTTL = 24 * time.Hour
	// DefaultAnalysisCacheTTL 分析结果缓存默认时长
	DefaultAnalysisCacheTTL = 72 * time.Hour
	// AnalysisLockTTL 分析锁的过期时间，略长于一次模型调用
	AnalysisLockTTL = 3 * time.Minute
)

// 上传限制
const (
	MaxPDFUploadSize   = 10 << 20
	MaxImageUploadSize = 5 << 20
	// MaxRequestBodySize 服务端请求体上限，需要容纳最多10张截图
	MaxRequestBodySize = 64 << 20
)
