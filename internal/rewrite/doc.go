// Package rewrite 负责把客户端包内的文本资源改写为指向本代理的版本。
//
// 改写是纯函数：同样的源文本与同样的 Context 总得到逐字节相同的结果。
// index.html、config.js 与 build.min.js 有专门规则，其余 JS 仅在开启
// beautify 时重新排版；各客户端版本的差异通过 Hooks 注册。
package rewrite
