// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 content 提供流式结构化输出的值模型：可能被截断的 JSON 形状数据
（Null / Bool / Number / String / Array / Structure），以及容忍截断的增量解析器
与类型强制转换。

# 主要类型

  - Value — 不可变的标签联合值，Structure 保留成员声明顺序
  - ParseError — 文本中连部分值都无法得到时返回（空输入、非法 UTF-8、无值起始）
  - CoercionError — 已存在的值无法转换为目标类型时返回
  - Decoder / Encoder — 自定义类型参与 As / Of 的能力接口

# 解析规则

Parse 先做严格解析；失败后回退到部分提取：对象只保留值已完整的成员，
未闭合的字符串、残缺的字面量与数字被整体丢弃；数组只保留完整的前导元素。
被截断的容器在构造时打上标记，IsComplete 每次调用都重新计算。

标量没有截断标记：顶层数字流在输入结束处总被视为完整，`12` 与 `123`
的前缀无法区分，IsComplete 均为 true。顶层字符串例外，未闭合的字符串
保留已到达的前缀并报告为不完整。需要判断顶层标量流是否结束时，
应以流本身的结束（例如 Output.Stream 的 Done 快照）为准。

# 典型用法

	v, err := content.ParseString(`{"name": "Alice", "age": 25`)
	if err != nil { // 无可用内容 }
	raw, _ := v.Property("age")
	age, err := content.As[int](raw)
	_ = v.IsComplete() // false
*/
package content
