package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Coinflip Settlement API
// @version         0.1.0
// @description     Wager settlement, payouts and round statistics.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
