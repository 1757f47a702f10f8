package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// flags
var (
	participantFlag = &cli.StringFlag{
		Name:     "participant",
		Usage:    "the identity of the participant",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:     "amount",
		Usage:    "the amount to pay or deposit",
		Required: true,
	}
	performFlag = &cli.BoolFlag{
		Name:  "perform",
		Usage: "close the round and request randomness if upkeep is needed",
	}
	indexFlag = &cli.IntFlag{
		Name:     "index",
		Usage:    "position of the player in the current round",
		Required: true,
	}
	requestIdFlag = &cli.Uint64Flag{
		Name:     "id",
		Usage:    "the randomness request id",
		Required: true,
	}
	wordsFlag = &cli.Uint64SliceFlag{
		Name:  "words",
		Usage: "random words to deliver, derived from the request id if omitted",
	}
	accountFlag = &cli.StringFlag{
		Name:     "account",
		Usage:    "the wallet account",
		Required: true,
	}
)

// commands
var (
	statusCmd = &cli.Command{
		Name:   "status",
		Usage:  "Get info about the current round",
		Action: statusAction,
	}
	enterCmd = &cli.Command{
		Name:   "enter",
		Usage:  "Enter the current round",
		Action: enterAction,
		Flags:  []cli.Flag{participantFlag, amountFlag},
	}
	playerCmd = &cli.Command{
		Name:   "player",
		Usage:  "Get the player at the given position",
		Action: playerAction,
		Flags:  []cli.Flag{indexFlag},
	}
	upkeepCmd = &cli.Command{
		Name:   "upkeep",
		Usage:  "Check whether the round can be closed, optionally closing it",
		Action: upkeepAction,
		Flags:  []cli.Flag{performFlag},
	}
	settleCmd = &cli.Command{
		Name:   "settle",
		Usage:  "Retry a failed prize transfer",
		Action: settleAction,
	}
	requestCmd = &cli.Command{
		Name:   "request",
		Usage:  "Get a randomness request",
		Action: requestAction,
		Flags:  []cli.Flag{requestIdFlag},
	}
	fulfillCmd = &cli.Command{
		Name:   "fulfill",
		Usage:  "Deliver random words for a pending request (mock oracle only)",
		Action: fulfillAction,
		Flags:  []cli.Flag{requestIdFlag, wordsFlag},
	}
	winnersCmd = &cli.Command{
		Name:   "winners",
		Usage:  "List past winners",
		Action: winnersAction,
	}
	walletCmd = &cli.Command{
		Name:  "wallet",
		Usage: "Manage participant balances",
		Subcommands: append(
			cli.Commands{},
			walletDepositCmd,
			walletBalanceCmd,
		),
	}
	walletDepositCmd = &cli.Command{
		Name:   "deposit",
		Usage:  "Credit funds to an account",
		Action: walletDepositAction,
		Flags:  []cli.Flag{accountFlag, amountFlag},
	}
	walletBalanceCmd = &cli.Command{
		Name:   "balance",
		Usage:  "Get the balance of an account",
		Action: walletBalanceAction,
		Flags:  []cli.Flag{accountFlag},
	}
)

func statusAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/raffle", ctx.String("url"))
	info, err := getRaw(url)
	if err != nil {
		return err
	}
	return printJSON(info)
}

func enterAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/raffle/enter", ctx.String("url"))
	body := fmt.Sprintf(
		`{"participant": %q, "amount": %d}`,
		ctx.String("participant"), ctx.Uint64("amount"),
	)
	count, err := post[int](url, body, "numberOfPlayers")
	if err != nil {
		return err
	}

	fmt.Printf("entered, %d players in round\n", count)
	return nil
}

func playerAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/raffle/players/%d", ctx.String("url"), ctx.Int("index"))
	player, err := get[string](url, "player")
	if err != nil {
		return err
	}

	fmt.Println(player)
	return nil
}

func upkeepAction(ctx *cli.Context) error {
	baseURL := ctx.String("url")
	url := fmt.Sprintf("%s/v1/raffle/upkeep", baseURL)
	if !ctx.Bool("perform") {
		status, err := getRaw(url)
		if err != nil {
			return err
		}
		return printJSON(status)
	}

	requestId, err := post[uint64](url, "", "requestId")
	if err != nil {
		return err
	}

	fmt.Printf("randomness requested, request id %d\n", requestId)
	return nil
}

func settleAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/raffle/settlement/retry", ctx.String("url"))
	if _, err := post[struct{}](url, "", ""); err != nil {
		return err
	}

	fmt.Println("settlement completed")
	return nil
}

func requestAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/raffle/requests/%d", ctx.String("url"), ctx.Uint64("id"))
	request, err := getRaw(url)
	if err != nil {
		return err
	}
	return printJSON(request)
}

func fulfillAction(ctx *cli.Context) error {
	url := fmt.Sprintf(
		"%s/v1/oracle/requests/%d/fulfill", ctx.String("url"), ctx.Uint64("id"),
	)
	body := ""
	if words := ctx.Uint64Slice("words"); len(words) > 0 {
		buf, err := json.Marshal(map[string][]uint64{"randomWords": words})
		if err != nil {
			return err
		}
		body = string(buf)
	}

	if _, err := post[struct{}](url, body, ""); err != nil {
		return err
	}

	fmt.Println("request fulfilled")
	return nil
}

func winnersAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/raffle/winners", ctx.String("url"))
	winners, err := get[json.RawMessage](url, "winners")
	if err != nil {
		return err
	}
	return printJSON(winners)
}

func walletDepositAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/wallet/deposit", ctx.String("url"))
	body := fmt.Sprintf(
		`{"account": %q, "amount": %d}`,
		ctx.String("account"), ctx.Uint64("amount"),
	)
	balance, err := post[uint64](url, body, "balance")
	if err != nil {
		return err
	}

	fmt.Println(balance)
	return nil
}

func walletBalanceAction(ctx *cli.Context) error {
	url := fmt.Sprintf("%s/v1/wallet/balance/%s", ctx.String("url"), ctx.String("account"))
	balance, err := get[uint64](url, "balance")
	if err != nil {
		return err
	}

	fmt.Println(balance)
	return nil
}

func post[T any](url, body, key string) (result T, err error) {
	req, err := http.NewRequest("POST", url, strings.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Add("Content-Type", "application/json")

	buf, err := do(req)
	if err != nil {
		err = fmt.Errorf("failed to post: %s", err)
		return
	}
	if key == "" {
		return
	}
	res := make(map[string]T)
	if err = json.Unmarshal(buf, &res); err != nil {
		return
	}

	result = res[key]
	return
}

func get[T any](url, key string) (result T, err error) {
	buf, err := getRaw(url)
	if err != nil {
		return
	}

	res := make(map[string]T)
	if err = json.Unmarshal(buf, &res); err != nil {
		return
	}

	result = res[key]
	return
}

func getRaw(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")

	buf, err := do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get: %s", err)
	}
	return buf, nil
}

func do(req *http.Request) ([]byte, error) {
	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s", strings.TrimSpace(string(buf)))
	}
	return buf, nil
}

func printJSON(buf []byte) error {
	var v interface{}
	if err := json.Unmarshal(buf, &v); err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}
