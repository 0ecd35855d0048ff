// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package tokenizer 提供模式序列化文本的 Token 计数。

# 概述

模式的线格式会被注入到提示词中，其 Token 数直接计入请求成本。
本包提供统一的 Tokenizer 接口，基于 tiktoken 的精确计数，以及
区分 CJK 与 ASCII 字符的估算器。tiktoken 编码表首次使用时可能需要
下载，离线环境下 ForModel 返回的计数器会自动回退到估算器。

# 核心接口

  - Tokenizer：CountTokens / MaxTokens / Name
  - Tiktoken：按模型名选择 o200k_base 或 cl100k_base 编码
  - Estimator：字符数估算，CJK 约 1.5 字符/token，ASCII 约 4 字符/token
  - CountSchema：统计描述符线格式的 Token 数
*/
package tokenizer
