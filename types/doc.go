// Copyright 2026 Generable Authors
// Use of this source code is governed by the project license.

/*
Package types 提供 generable 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 content、schema、
structured 与 api 等上层模块提供统一的错误契约，以避免循环依赖。

# 核心类型

  - ErrorCode — 稳定的错误码字符串，HTTP 层据此映射状态码
  - Error     — 结构化错误（Code + Message + Cause），支持 errors.Is 按码比较
  - Coded     — 自带错误码的错误接口，ParseError、CoercionError 等实现它

# 错误工具

  - NewError / WithCause：构造并包装底层错误
  - GetErrorCode：沿 Unwrap 链查找第一个错误码，无码时返回空串
  - HasCode：判断错误链上是否带有指定错误码
*/
package types
