package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ProfileModulePrefix 档案模块
	ProfileModulePrefix = "profile"
	// AnalysisModulePrefix 分析模块
	AnalysisModulePrefix = "analysis"

	// EntityParse 解析结果实体
	EntityParse = "parse"
	// EntityResult 分析结果实体
	EntityResult = "result"
	// EntityLock 分布式锁实体
	EntityLock = "lock"

	// KeyParsedProfile 文本MD5到解析结果的缓存 (STRING, JSON)
	// 格式: app:profile:parse:{textMD5}
	KeyParsedProfile = AppPrefix + ":" + ProfileModulePrefix + ":" + EntityParse + ":%s"

	// KeyAnalysisResult 档案加目标岗位到分析结果的缓存 (STRING, JSON)
	// 格式: app:analysis:result:{recordMD5}:{roleMD5}
	KeyAnalysisResult = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityResult + ":%s:%s"

	// KeyAnalysisLock 同一档案分析的互斥锁 (STRING)
	// 格式: app:analysis:lock:{submissionID}
	KeyAnalysisLock = AppPrefix + ":" + AnalysisModulePrefix + ":" + EntityLock + ":%s"
)
