// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 router 根据分类结果为任务挑选 Worker。

# 评分公式

	score = primaryBonus + Σ weight(category) + languageBonus
	      - costPerCall × costScale + accuracy / 10 - latencyPenalty

类别权重仅在该类别命中数大于 0 且 Worker 声明了同名能力时计入；
语言加成使用上下文声明的语言，未声明时使用分类器检测到的语言；
延迟惩罚仅在 urgency=high 且 Worker 延迟等级为 high 时生效。

# 选择

SelectBest 取严格最高分，同分按注册顺序。注册表为空返回 NO_WORKERS；
评分出现 panic 或非有限分数时退回主 Worker（无主 Worker 时为最早注册者），
只记录日志，不向调用方返回错误。评分器只读，不修改统计。
*/
package router
