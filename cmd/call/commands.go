package call

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/dRPC/lib/arith"
	"github.com/spf13/cobra"
)

var (
	helloCmd = &cobra.Command{
		Use:   "hello [name]",
		Short: "Calls hello.IHelloService.SayHello",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			greeting, err := rpcHello.SayHello(args[0])
			if err != nil {
				return err
			}
			fmt.Println(greeting)
			return nil
		},
	}
	addCmd = &cobra.Command{
		Use:   "add [a] [b]",
		Short: "Adds two numbers, integers use Add(int,int) and decimals Add(float64,float64)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, errA := strconv.Atoi(args[0])
			b, errB := strconv.Atoi(args[1])
			if errA == nil && errB == nil {
				sum, err := rpcArith.Add(a, b)
				if err != nil {
					return err
				}
				fmt.Println(sum)
				return nil
			}

			x, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("a must be a number: %w", err)
			}
			y, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("b must be a number: %w", err)
			}
			sum, err := rpcArith.AddFloat(x, y)
			if err != nil {
				return err
			}
			fmt.Println(sum)
			return nil
		},
	}
	divideCmd = &cobra.Command{
		Use:   "divide [a] [b]",
		Short: "Divides two integers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("a must be an integer: %w", err)
			}
			b, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("b must be an integer: %w", err)
			}
			quotient, err := rpcArith.Divide(a, b)
			if err != nil {
				return err
			}
			fmt.Println(quotient)
			return nil
		},
	}
	swapCmd = &cobra.Command{
		Use:   "swap [a] [b]",
		Short: "Swaps a pair of integers on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("a must be an integer: %w", err)
			}
			b, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("b must be an integer: %w", err)
			}
			p, err := rpcArith.Swap(arith.Pair{A: a, B: b})
			if err != nil {
				return err
			}
			fmt.Printf("%d %d\n", p.A, p.B)
			return nil
		},
	}
)
