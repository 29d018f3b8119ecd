package handler

import "github.com/gofiber/fiber/v2"

// Every endpoint answers with the same envelope: exactly one of data and
// error is set.
func succeeded(c *fiber.Ctx, code int, data interface{}) error {
	return c.Status(code).JSON(fiber.Map{"status": "succeeded", "data": data, "error": nil})
}

func failed(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(fiber.Map{"status": "failed", "data": nil, "error": message})
}
