// Package databanktest holds a small databank extract for tests.
package databanktest

import (
	"os"
	"path/filepath"
	"testing/fstest"
)

// FS is a tiny databank: Aaron 1957 and Ruth 1919/1920 plus two managers.
func FS() fstest.MapFS {
	files := map[string]string{
		"People.csv": `playerID,birthYear,birthMonth,birthDay,birthCountry,birthState,birthCity,nameFirst,nameLast,nameGiven,weight,height,bats,throws,debut,finalGame
aaronha01,1934,2,5,USA,AL,Mobile,Hank,Aaron,Henry Louis,180,72,R,R,1954-04-13,1976-10-03
ruthba01,1895,2,6,USA,MD,Baltimore,Babe,Ruth,George Herman,215,74,L,L,1914-07-11,1935-05-30
mgr01,1900,,1,USA,NY,New York,Joe,Boss,Joseph,,,R,R,bad,
mgr02,1901,2,30,USA,NY,New York,Sam,Skip,Samuel,,,R,R,,
`,
		"Appearances.csv": `yearID,teamID,lgID,playerID,G_all,GS,G_batting,G_defense,G_p,G_c,G_1b,G_2b,G_3b,G_ss,G_lf,G_cf,G_rf,G_of,G_dh,G_ph,G_pr
1957,ML1,NL,aaronha01,151,150,151,150,0,0,0,0,0,0,0,0,150,150,0,0,0
1957,ML1,NL,aaronha01,151,150,151,150,0,0,0,0,0,0,0,0,150,150,0,0,0
1920,NYA,AL,ruthba01,142,,142,142,1,0,2,0,0,0,96,10,96,130,,,
1919,BOS,AL,ruthba01,130,,130,128,17,0,0,0,0,0,17,0,0,111,,,
`,
		"AllstarFull.csv": `playerID,yearID,gameNum,gameID,teamID,lgID,GP,startingPos
aaronha01,1957,0,NLS195707090,ML1,NL,1,9
aaronha01,1957,0,NLS195707090,ML1,NL,1,9
`,
		"AwardsSharePlayers.csv": `awardID,yearID,lgID,playerID,pointsWon,pointsMax,votesFirst
MVP,1957,NL,aaronha01,239,336,9
Cy Young,1957,NL,aaronha01,1,16,0
Rookie of the Year,1914,AL,ruthba01,1,1,0
`,
		"CollegePlaying.csv": `playerID,schoolID,yearID
ruthba01,stmarys,1912
ruthba01,stmarys,1913
ruthba01,baltimore,1913
mgr01,nyu,1918
`,
		"HallOfFame.csv": `playerID,yearid,votedBy,ballots,needed,votes,inducted,category,needed_note
aaronha01,1982,BBWAA,415,312,406,Y,Player,
ruthba01,1936,BBWAA,226,170,215,Y,Player,
mgr01,1950,Veterans,,,,Y,Manager,
`,
		"Managers.csv": `playerID,yearID,teamID,lgID,inseason,G,W,L,rank,plyrMgr
mgr01,1957,ML1,NL,1,100,60,40,1,N
mgr02,1957,ML1,NL,2,54,35,19,1,N
mgr01,1920,NYA,AL,1,154,95,59,3,N
`,
		"Salaries.csv": `yearID,teamID,lgID,playerID,salary
1957,ML1,NL,aaronha01,22500
1957,ML1,NL,aaronha01,22501
1920,NYA,AL,ruthba01,20000
`,
		"Teams.csv": `yearID,lgID,teamID,franchID,divID,Rank,G,Ghome,W,L,DivWin,WCWin,LgWin,WSWin,name,park,attendance,BPF,PPF
1957,NL,ML1,ATL,,1,155,77,95,59,,,Y,Y,Milwaukee Braves,County Stadium,2215404,106,104
1920,AL,NYA,NYY,,3,154,77,95,59,,,N,N,New York Yankees,Polo Grounds IV,1289422,101,99
1919,AL,BOS,BOS,,6,138,,66,71,,,N,N,Boston Red Sox,Fenway Park I,417291,97,96
`,
		"TeamsFranchises.csv": `franchID,franchName,active,NAassoc
ATL,Atlanta Braves,Y,BNA
NYY,New York Yankees,Y,
BOS,Boston Red Sox,Y,
`,
		"Batting.csv": `playerID,yearID,stint,teamID,lgID,G,AB,R,H,2B,3B,HR,RBI,SB,CS,BB,SO,IBB,HBP,SH,SF,GIDP
aaronha01,1957,1,ML1,NL,151,615,118,198,27,6,44,132,1,1,57,58,,0,0,3,13
aaronha01,1957,2,ML1,NL,1,1,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0
ruthba01,1920,1,NYA,AL,142,458,158,172,36,9,54,135,14,14,150,80,,3,5,,
ruthba01,1919,1,BOS,AL,130,432,103,139,34,12,29,113,7,,101,58,,6,3,,
`,
		"Fielding.csv": `playerID,yearID,stint,teamID,lgID,POS,G,GS,InnOuts,PO,A,E,DP,PB,WP,SB,CS,ZR
aaronha01,1957,1,ML1,NL,OF,150,150,4000,346,9,6,2,,,,,
ruthba01,1920,1,NYA,AL,OF,141,,,259,21,19,3,,,,,
ruthba01,1919,1,BOS,AL,P,17,15,399,4,29,2,0,,,,,
ruthba01,1919,1,BOS,AL,OF,111,,,230,14,2,6,,,,,
`,
		"BattingPost.csv": `yearID,round,playerID,teamID,lgID,G,AB,R,H,2B,3B,HR,RBI,SB,CS,BB,SO,IBB,HBP,SH,SF,GIDP
1957,WS,aaronha01,ML1,NL,7,28,5,11,0,1,3,7,0,0,1,6,0,0,0,0,0
`,
		"FieldingPost.csv": `playerID,yearID,teamID,lgID,round,POS,G,GS,InnOuts,PO,A,E,DP,TP,PB,SB,CS
aaronha01,1957,ML1,NL,WS,CF,7,7,183,11,0,0,0,0,,,
`,
	}
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

// WriteDir copies FS into dir.
func WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, f := range FS() {
		if err := os.WriteFile(filepath.Join(dir, name), f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
