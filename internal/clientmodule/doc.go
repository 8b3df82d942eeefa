// Package clientmodule 聚合不同客户端版本的改写策略，并提供统一的注册入口。
//
// 模块作者需要：
//  1. 在 internal/clientmodule/<module-key>/ 目录下实现注入脚本与改写 hooks；
//  2. 通过本包暴露的 Register 函数在 init() 中注册模块元数据；
//  3. 通过 rewrite.MustRegisterHooks 注册与元数据同名的 hooks。
//
// 该包同时负责提供模块发现、可观测信息以及迁移状态的对外查询能力。
package clientmodule
