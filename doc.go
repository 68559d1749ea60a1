// Package scentkit 是一个香水推荐引擎工具包（Scent Recommender Kit）。
//
// 设计要点：
// - Matrix-first: 稀疏评分矩阵是唯一事实来源，快照不可变、整体替换、按内容哈希判新
// - Strategy 可插拔: 内容推荐 / 物品协同过滤 / 用户协同过滤，统一能力描述与资格检查
// - Labels-first: method / fallback / confidence 等解释信息全链路透传
// - 永不空手而归: 策略不可用或内部失败时退化为目录兜底列表，只有数据不可用才报错
package scentkit

import (
	"github.com/scentlab/scentkit/engine"
	"github.com/scentlab/scentkit/strategy"
)

// 轻量 facade：便于用户直接 import "scentkit" 使用核心抽象。
type Engine = engine.Engine
type Strategy = strategy.Strategy
type Options = strategy.Options

const (
	StrategyAuto         = engine.StrategyAuto
	StrategyContentBased = strategy.NameContentBased
	StrategyItemBasedCF  = strategy.NameItemBasedCF
	StrategyUserBasedCF  = strategy.NameUserBasedCF
)
