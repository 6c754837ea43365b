// Copyright (c) AgentFlow Authors. Licensed under the MIT License.

/*
Package review 提供代码审查智能体及其结构化审查结果。

# 概述

审查者必须通过 ReviewCodeBlock 函数调用给出结论。结论 CodeReviewResult
包含四个检查项，true 表示该项通过，按以下固定顺序评估：

  - IsSingleCodeBlock: 只有一个代码块
  - IsCorrectLanguage: 代码块语言正确
  - IsTopLevelStatement: 使用顶层语句
  - IsPrintResultToConsole: 结果输出到控制台

Feedback 是纯函数：存在未通过项时返回一条带 "- " 列表的修改意见，
全部通过时返回固定的批准消息。

# 重试

NewReviewer 将 LLM 智能体包裹在 agent.RetryUntilValid 中，回复无法解析为
函数参数时发送澄清提示重试，超过上限返回 STRUCTURAL_VALIDATION 错误。
*/
package review
