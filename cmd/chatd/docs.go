package main

// General API documentation for swaggo. Run `swag init -g cmd/chatd/docs.go -o docs` to regenerate docs.
//
// @title           chatd API
// @version         1.0
// @description     OpenAI-compatible chat completions served by a single local model.
//
// @contact.name   chatd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
