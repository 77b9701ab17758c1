// Package i18n knows the supported locales and the interface strings for each.
package i18n

import "slices"

const (
	Chinese = "zh"
	English = "en-US"

	// Default is used whenever a locale is missing or unsupported.
	Default = Chinese
)

var supported = []string{Chinese, English}

// Supported returns the supported locales, default first.
func Supported() []string {
	return slices.Clone(supported)
}

// IsSupported reports whether locale is served.
func IsSupported(locale string) bool {
	return slices.Contains(supported, locale)
}

// Resolve returns locale when supported and the default otherwise.
func Resolve(locale string) string {
	if IsSupported(locale) {
		return locale
	}
	return Default
}

// Alternate returns the other locale, for the language switcher.
func Alternate(locale string) string {
	if Resolve(locale) == Chinese {
		return English
	}
	return Chinese
}

var messages = map[string]map[string]string{
	Chinese: {
		"site.title":           "Folio",
		"nav.home":             "首页",
		"nav.blog":             "博客",
		"nav.notes":            "笔记",
		"nav.search":           "搜索",
		"home.articles":        "最新文章",
		"home.notes":           "最新笔记",
		"notes.all":            "全部",
		"notes.thoughts":       "想法",
		"notes.notes":          "笔记",
		"notes.empty":          "暂无笔记",
		"notes.source":         "来源",
		"notes.mood":           "心情",
		"blog.empty":           "暂无文章",
		"blog.minutes":         "分钟阅读",
		"search.prompt":        "搜索文章和笔记",
		"search.none":          "没有找到结果",
		"stats.total":          "总数",
		"stats.tags":           "标签",
		"chat.title":           "AI 助手",
		"chat.send":            "发送",
		"error.notfound":       "页面不存在",
		"error.generic":        "出错了",
		"lang.switch":          "English",
		"chat.unconfigured":    "AI功能尚未配置。请在.env.local中配置GLM_API_KEY或OPENAI_API_KEY。",
		"chat.failed":          "抱歉，发生了错误：%s。请稍后再试。",
		"chat.prompt.glm":      "你是一个友好的AI助手，帮助用户回答关于技术、编程和博客相关的问题。请简洁明了地回答，控制在150字以内。",
		"chat.prompt":          "你是一个友好的AI助手，帮助用户回答关于技术、编程和博客相关的问题。",
		"nav.about":            "关于",
		"notes.new":            "新建笔记",
		"notes.edit":           "编辑",
		"notes.save":           "保存",
		"notes.back":           "返回笔记",
		"notes.delete":         "删除",
		"notes.delete.confirm": "确认删除这条笔记",
		"form.id":              "ID（可选）",
		"form.type":            "类型",
		"form.title":           "标题",
		"form.content":         "内容",
		"form.tags":            "标签（逗号分隔）",
		"form.date":            "日期",
		"form.sourceurl":       "来源链接",
		"about.title":          "关于我",
		"about.description":    "写代码，也写字。这里记录技术文章、读书笔记和日常想法。",
		"about.skills":         "技能",
		"about.frontend":       "前端开发",
		"about.frontend.desc":  "React, Next.js, TypeScript",
		"about.ai":             "AI集成",
		"about.ai.desc":        "OpenAI, Claude, AI应用开发",
		"about.contact":        "联系方式",
	},
	English: {
		"site.title":           "Folio",
		"nav.home":             "Home",
		"nav.blog":             "Blog",
		"nav.notes":            "Notes",
		"nav.search":           "Search",
		"home.articles":        "Latest articles",
		"home.notes":           "Latest notes",
		"notes.all":            "All",
		"notes.thoughts":       "Thoughts",
		"notes.notes":          "Notes",
		"notes.empty":          "No notes yet",
		"notes.source":         "Source",
		"notes.mood":           "Mood",
		"blog.empty":           "No articles yet",
		"blog.minutes":         "min read",
		"search.prompt":        "Search articles and notes",
		"search.none":          "No results found",
		"stats.total":          "Total",
		"stats.tags":           "Tags",
		"chat.title":           "AI assistant",
		"chat.send":            "Send",
		"error.notfound":       "Page not found",
		"error.generic":        "Something went wrong",
		"lang.switch":          "中文",
		"chat.unconfigured":    "AI feature not configured. Please configure GLM_API_KEY or OPENAI_API_KEY in .env.local.",
		"chat.failed":          "Sorry, an error occurred: %s. Please try again later.",
		"chat.prompt.glm":      "You are a friendly AI assistant helping users with questions about technology, programming, and blog-related topics. Please answer concisely within 150 words.",
		"chat.prompt":          "You are a friendly AI assistant helping users with questions about technology, programming, and blog-related topics.",
		"nav.about":            "About",
		"notes.new":            "New note",
		"notes.edit":           "Edit",
		"notes.save":           "Save",
		"notes.back":           "Back to notes",
		"notes.delete":         "Delete",
		"notes.delete.confirm": "Yes, delete this note",
		"form.id":              "ID (optional)",
		"form.type":            "Type",
		"form.title":           "Title",
		"form.content":         "Content",
		"form.tags":            "Tags (comma separated)",
		"form.date":            "Date",
		"form.sourceurl":       "Source URL",
		"about.title":          "About me",
		"about.description":    "I write code and words. This site collects technical articles, reading notes and everyday thoughts.",
		"about.skills":         "Skills",
		"about.frontend":       "Frontend Development",
		"about.frontend.desc":  "React, Next.js, TypeScript",
		"about.ai":             "AI Integration",
		"about.ai.desc":        "OpenAI, Claude, AI App Development",
		"about.contact":        "Get in Touch",
	},
}

// T returns the string for key in locale. Unknown locales fall back to the
// default; unknown keys return the key itself.
func T(locale, key string) string {
	if s, ok := messages[Resolve(locale)][key]; ok {
		return s
	}
	return key
}
