/*
Package main in the directory config_gen implements a tool to read configuration from a template,
and generate the configuration file of a simulated node set.
The faulty nodes are chosen at random among the backups, or the primary for faults
that only the primary can commit.
*/
package main

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/gitzhang10/tpmchain/config"
	"github.com/gitzhang10/tpmchain/pbft"
	"github.com/spf13/viper"
)

func judgeWhetherInSlice(i int, b []int) bool {
	for _, v := range b {
		if i == v {
			return true
		}
	}
	return false
}

// generateRandomNumber picks faultyNum distinct numbers in [lo, hi).
func generateRandomNumber(lo, hi int, faultyNum int) []int {
	var nums []int
	if faultyNum > hi-lo {
		faultyNum = hi - lo
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for len(nums) < faultyNum {
		num := lo + r.Intn(hi-lo)
		// discard duplicates
		if !judgeWhetherInSlice(num, nums) {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)
	return nums
}

func main() {
	viperRead := viper.New()
	// for environment variables
	viperRead.SetEnvPrefix("")
	viperRead.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	viperRead.SetEnvKeyReplacer(replacer)
	viperRead.SetConfigName("config_template")
	viperRead.AddConfigPath("./")
	err := viperRead.ReadInConfig()
	if err != nil {
		panic(err)
	}

	def := config.Default()
	viperRead.SetDefault("node_num", def.NodeNum)
	viperRead.SetDefault("log_level", def.LogLevel)
	viperRead.SetDefault("identity", def.Identity)
	viperRead.SetDefault("rsa_bits", def.RSABits)
	viperRead.SetDefault("hash_algorithm", def.HashAlgorithm)
	viperRead.SetDefault("commit_mode", def.CommitMode)
	viperRead.SetDefault("phase_timeout", def.PhaseTimeout.String())
	viperRead.SetDefault("fault_kind", pbft.FaultByzantine.String())

	nodeNum := viperRead.GetInt("node_num")
	faultyNum := viperRead.GetInt("faulty_number")
	fault, err := pbft.ParseFault(viperRead.GetString("fault_kind"))
	if err != nil {
		panic(err)
	}
	if faultyNum > pbft.MaxFaulty(nodeNum) {
		fmt.Printf("warning: %d faulty nodes exceed the %d a set of %d tolerates\n",
			faultyNum, pbft.MaxFaulty(nodeNum), nodeNum)
	}

	var faultyNode []int
	if fault == pbft.FaultForge || fault == pbft.FaultCorrupt {
		faultyNode = []int{pbft.PrimaryID}
	} else {
		faultyNode = generateRandomNumber(pbft.PrimaryID+1, nodeNum, faultyNum)
	}
	fmt.Println("FaultyNodes:", faultyNode)

	faulty := make(map[string]string, len(faultyNode))
	for i := 0; i < nodeNum; i++ {
		if judgeWhetherInSlice(i, faultyNode) {
			faulty[fmt.Sprintf("node%d", i)] = fault.String()
		}
	}

	// write to configure file
	viperWrite := viper.New()
	viperWrite.SetConfigFile("config.yaml")
	viperWrite.Set("name", viperRead.GetString("name"))
	viperWrite.Set("node_num", nodeNum)
	viperWrite.Set("log_level", viperRead.GetInt("log_level"))
	viperWrite.Set("identity", viperRead.GetString("identity"))
	viperWrite.Set("rsa_bits", viperRead.GetInt("rsa_bits"))
	viperWrite.Set("hash_algorithm", viperRead.GetString("hash_algorithm"))
	viperWrite.Set("commit_mode", viperRead.GetString("commit_mode"))
	viperWrite.Set("phase_timeout", viperRead.GetString("phase_timeout"))
	viperWrite.Set("faulty", faulty)
	if err = viperWrite.WriteConfig(); err != nil {
		panic(err)
	}

	// read the file back the way the node set will
	if _, err = config.LoadConfig("", "config"); err != nil {
		panic(fmt.Errorf("generated config is invalid: %w", err))
	}
}
