package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           convertd API
// @version         1.0
// @description     HTTP API for document conversion job management.
//
// @contact.name   convertd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
