package model

import "errors"

// 错误分类：行级错误只排除单条记录，配置级错误终止整个运行
var (
	// ErrInvalidSequence 序列包含非法残基或为空（行级，排除该行）
	ErrInvalidSequence = errors.New("invalid sequence")

	// ErrMissingAffinity 亲和力值缺失或无法解析（行级，排除该行）
	ErrMissingAffinity = errors.New("missing affinity")

	// ErrAlignmentFailed 外部比对工具失败或超时（比对产物标记 failed，依赖方被排除）
	ErrAlignmentFailed = errors.New("alignment failed")

	// ErrReferenceNotReady 在参考结构就绪前请求派生结构（配置/程序错误，致命）
	ErrReferenceNotReady = errors.New("reference structure not ready")

	// ErrUnknownStrategy 未知的结构生成策略（配置错误，运行开始前终止）
	ErrUnknownStrategy = errors.New("unknown structure strategy")

	// ErrUnknownLigand 未知配体名称
	ErrUnknownLigand = errors.New("unknown ligand")
)
