// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 schema 描述并校验期望的输出形状：对象（有序属性）、封闭枚举与联合类型，
以及附加在属性上的约束指引（Guide）。描述符构建后不可变，可在多个 goroutine
之间无锁共享。

# 主要类型

  - Descriptor — 对象 / 枚举 / 联合描述符，提供稳定的线格式序列化
  - Property — 有序属性，TypeName 为原始类型、其他描述符名称或 [T]
  - Guide — Range / Pattern / AnyOf / MinCount / MaxCount / Count / Element
  - Builder / DynamicSchema — 运行时按名称构建（允许前向引用）的描述符图
  - Definitions — 从 YAML / JSON 声明式加载的描述符定义
  - SchemaBuildError / Violation / Violations — 构建失败与约束违例

# 线格式

每个节点依次输出 title、type、可选的 description，然后是
properties + required（对象）或 anyOf（枚举 / 联合）。被引用的描述符只在根节点
的 $defs 中出现一次，按首次引用顺序排列，通过 $ref 引用，因此递归结构也可序列化。

# 典型用法

	person := schema.Must(schema.NewObject("Person",
		schema.Prop("name", schema.TypeString),
		schema.Prop("age", schema.TypeInteger, schema.Range(0, 120)),
		schema.Prop("email", schema.TypeString).AsOptional().WithFormat(schema.FormatEmail),
	))
	wire, _ := person.Serialize()
	err := person.Validate(value)
*/
package schema
